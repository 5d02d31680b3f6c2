package opentdb

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"trivia-quiz/internal/domain"
)

// DefaultURL is the public Open Trivia DB question endpoint.
const DefaultURL = "https://opentdb.com/api.php"

// Client fetches question sets from an Open Trivia DB compatible endpoint.
type Client struct {
	httpClient *http.Client
	endpoint   string
	amount     int
	kind       string
}

// NewClient builds a client asking for amount questions of the given type
// ("multiple" or "boolean"). A nil httpClient uses one with no timeout;
// callers bound requests through the context.
func NewClient(httpClient *http.Client, endpoint string, amount int, kind string) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if endpoint == "" {
		endpoint = DefaultURL
	}
	return &Client{
		httpClient: httpClient,
		endpoint:   endpoint,
		amount:     amount,
		kind:       kind,
	}
}

type apiResponse struct {
	ResponseCode int               `json:"response_code"`
	Results      []domain.Question `json:"results"`
}

// FetchQuestions issues a single GET; there is no retry.
func (c *Client) FetchQuestions(ctx context.Context) ([]domain.Question, error) {
	reqURL, err := c.requestURL()
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", domain.ErrQuestionSource, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrQuestionSource, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: unexpected status %s", domain.ErrQuestionSource, resp.Status)
	}

	var payload apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", domain.ErrQuestionSource, err)
	}
	if payload.ResponseCode != 0 {
		return nil, fmt.Errorf("%w: response code %d", domain.ErrQuestionSource, payload.ResponseCode)
	}

	for i := range payload.Results {
		unescape(&payload.Results[i])
	}
	return payload.Results, nil
}

func (c *Client) requestURL() (string, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return "", fmt.Errorf("%w: parse endpoint: %v", domain.ErrQuestionSource, err)
	}
	q := u.Query()
	if c.amount > 0 {
		q.Set("amount", strconv.Itoa(c.amount))
	}
	if c.kind != "" {
		q.Set("type", c.kind)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// The API HTML-encodes its text; decode it once so rendering can escape plain text.
func unescape(q *domain.Question) {
	q.Question = html.UnescapeString(q.Question)
	q.CorrectAnswer = html.UnescapeString(q.CorrectAnswer)
	for i, answer := range q.IncorrectAnswers {
		q.IncorrectAnswers[i] = html.UnescapeString(answer)
	}
	q.Category = html.UnescapeString(q.Category)
}
