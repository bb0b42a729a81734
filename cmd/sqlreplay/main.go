// sqlreplay is a tool for inspecting and converting recorded query fixtures.
package main

import (
	"io"
	"os"

	"github.com/jessevdk/go-flags"
	"github.com/prashanthpai/sqlreplay"
	"github.com/prashanthpai/sqlreplay/fixture"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// LogConfig configures handling of application log events.
type LogConfig struct {
	Level  string `long:"level" env:"LEVEL" default:"warn" choice:"trace" choice:"debug" choice:"info" choice:"warn" choice:"error" choice:"fatal" description:"Logging level"`
	Format string `long:"format" env:"FORMAT" default:"text" choice:"json" choice:"text" choice:"color" description:"Logging output format"`
}

// InitLog configures the logger.
func InitLog(cfg LogConfig) {
	if cfg.Format == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else if cfg.Format == "text" {
		log.SetFormatter(&log.TextFormatter{})
	} else if cfg.Format == "color" {
		log.SetFormatter(&log.TextFormatter{ForceColors: true})
	}

	if lvl, err := log.ParseLevel(cfg.Level); err != nil {
		log.WithField("err", err).Fatal("unrecognized log level")
	} else {
		log.SetLevel(lvl)
	}
}

// baseConfig holds the options shared by all sub-commands.
type baseConfig struct {
	Root  string    `long:"root" env:"SQLREPLAY_ROOT" default:"testdata/fixtures" description:"Directory holding fixture files"`
	Codec string    `long:"codec" env:"SQLREPLAY_CODEC" default:"yaml" choice:"yaml" choice:"json" choice:"msgpack" description:"Encoding of the fixture files"`
	Log   LogConfig `group:"Logging" namespace:"log" env-namespace:"LOG"`
}

// store returns the FileStore described by cfg over fs.
func (cfg *baseConfig) store(fs afero.Fs) (*sqlreplay.FileStore, error) {
	codec, err := fixture.CodecByName(cfg.Codec)
	if err != nil {
		return nil, err
	}
	return sqlreplay.NewFileStore(fs, cfg.Root, codec), nil
}

func newParser(fs afero.Fs, out io.Writer, opts flags.Options) *flags.Parser {
	var cfg = new(baseConfig)
	var parser = flags.NewParser(cfg, opts)

	parser.LongDescription = `sqlreplay inspects the query fixtures recorded by the sqlreplay
interceptor.

See --help pages of each sub-command for documentation and usage examples.
Fixtures are read from the --root directory, encoded with --codec.
`
	parser.CommandHandler = func(cmd flags.Commander, args []string) error {
		InitLog(cfg.Log)
		if cmd == nil {
			return nil
		}
		return cmd.Execute(args)
	}

	mustAddCmd(parser.Command, "list", "List recorded fixtures", `
List all fixtures below --root, with their discriminator, number of recorded
queries, size on disk and age.

Examples:

# List fixtures recorded by the HTTP middleware:
sqlreplay --root testdata/fixtures list
`, &cmdList{cfg: cfg, fs: fs, out: out})

	mustAddCmd(parser.Command, "show", "Show the queries of a fixture", `
Show the recorded queries of the fixture named by --name, with their matched
options, result columns and number of rows.

Examples:

# Show the queries recorded for GET /users:
sqlreplay show --name http/users
`, &cmdShow{cfg: cfg, fs: fs, out: out})

	mustAddCmd(parser.Command, "convert", "Re-encode fixtures with another codec", `
Re-encode every fixture below --root with the codec given by --to, writing
them below --dest (default: --root). Source files are left in place unless
--remove is given.

Examples:

# Convert YAML fixtures to msgpack, e.g. to upload them to redis:
sqlreplay --codec yaml convert --to msgpack --dest testdata/msgpack
`, &cmdConvert{cfg: cfg, fs: fs, out: out})

	return parser
}

func mustAddCmd(cmd *flags.Command, name, short, long string, data interface{}) *flags.Command {
	cmd, err := cmd.AddCommand(name, short, long, data)
	if err != nil {
		log.WithField("err", err).Fatal("failed to add command")
	}
	return cmd
}

func main() {
	var parser = newParser(afero.NewOsFs(), os.Stdout, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}
}
