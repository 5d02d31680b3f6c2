package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"trivia-quiz/internal/config"
)

const releaseVersion = "1.0.0"

// flags holds command line overrides for the YAML config.
type flags struct {
	configPath string
	bind       string
	port       string
	prefix     string
	tlsCert    string
	tlsKey     string
	ledger     string
	shuffle    string
	verbose    bool
	profile    bool
}

// Execute runs the CLI.
func Execute() error {
	// A missing .env is fine; real environment variables still apply.
	_ = godotenv.Load()
	return newRootCmd(&flags{}).Execute()
}

func newRootCmd(f *flags) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("TRIVIA")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	envConfig := os.Getenv("CONFIG_PATH")
	if envConfig == "" {
		envConfig = "config/config.yaml"
	}

	cmd := &cobra.Command{
		Use:           "trivia",
		Short:         "Browser trivia quiz backed by the Open Trivia Database",
		Version:       releaseVersion,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	fs := cmd.PersistentFlags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVar(&f.configPath, "config", envConfig, "path to YAML config (env: TRIVIA_CONFIG)")
	fs.StringVarP(&f.bind, "bind", "b", "", "address to bind to (env: TRIVIA_BIND)")
	fs.StringVarP(&f.port, "port", "p", "", "port to listen on (env: TRIVIA_PORT)")
	fs.StringVar(&f.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: TRIVIA_PREFIX)")
	fs.StringVar(&f.tlsCert, "tls-cert", "", "path to tls certificate (env: TRIVIA_TLS_CERT)")
	fs.StringVar(&f.tlsKey, "tls-key", "", "path to tls keyfile (env: TRIVIA_TLS_KEY)")
	fs.StringVar(&f.ledger, "ledger", "", "score ledger backend: memory, redis, postgres or sqlite (env: TRIVIA_LEDGER)")
	fs.StringVar(&f.shuffle, "shuffle", "", "answer shuffle: comparator or uniform (env: TRIVIA_SHUFFLE)")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "display additional output (env: TRIVIA_VERBOSE)")
	fs.BoolVar(&f.profile, "profile", false, "register net/http/pprof handlers (env: TRIVIA_PROFILE)")

	fs.VisitAll(func(fl *pflag.Flag) {
		_ = v.BindPFlag(fl.Name, fl)
		_ = v.BindEnv(fl.Name)
		if !fl.Changed && v.IsSet(fl.Name) {
			_ = fs.Set(fl.Name, fmt.Sprintf("%v", v.Get(fl.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("trivia v{{.Version}}\n")

	cmd.AddCommand(NewStartCmd(f))
	cmd.AddCommand(NewMigrateCmd(f))
	return cmd
}

// loadConfig reads the YAML file, applies explicitly set flags and env
// variables on top, and validates the result.
func loadConfig(fs *pflag.FlagSet, f *flags) (config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return cfg, err
	}

	if fs.Changed("bind") {
		cfg.Server.Bind = f.bind
	}
	if fs.Changed("port") {
		cfg.Server.Port = f.port
	}
	if fs.Changed("prefix") {
		cfg.Server.Prefix = f.prefix
	}
	if fs.Changed("tls-cert") {
		cfg.Server.TLSCert = f.tlsCert
	}
	if fs.Changed("tls-key") {
		cfg.Server.TLSKey = f.tlsKey
	}
	if fs.Changed("ledger") {
		cfg.Ledger.Backend = f.ledger
	}
	if fs.Changed("shuffle") {
		cfg.Trivia.Shuffle = f.shuffle
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
