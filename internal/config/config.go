package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	Paths    PathsConfig   `mapstructure:"paths"`
	Corpus   CorpusConfig  `mapstructure:"corpus"`
	Vectors  VectorsConfig `mapstructure:"vectors"`
	Export   ExportConfig  `mapstructure:"export"`
	Server   ServerConfig  `mapstructure:"server"`
	LogLevel string        `mapstructure:"log_level"`
}

type PathsConfig struct {
	Corpus     string `mapstructure:"corpus"`
	Embeddings string `mapstructure:"embeddings"`
	OutputDir  string `mapstructure:"output_dir"`
}

type CorpusConfig struct {
	ShortLines string `mapstructure:"short_lines"`
	LowerWords bool   `mapstructure:"lower_words"`
}

type VectorsConfig struct {
	OnMismatch   string `mapstructure:"on_mismatch"`
	DetectHeader bool   `mapstructure:"detect_header"`
	Progress     bool   `mapstructure:"progress"`
}

type ExportConfig struct {
	DType  string `mapstructure:"dtype"`
	MaxLen int    `mapstructure:"max_len"`
}

type ServerConfig struct {
	ListenAddr      string        `mapstructure:"listen_addr"`
	MaxTokens       int           `mapstructure:"max_tokens"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type LoadOptions struct {
	Cmd        flagBinder
	ConfigFile string
	Defaults   Config
}

type flagBinder interface {
	Flags() *pflag.FlagSet
}

func DefaultConfig() Config {
	return Config{
		Paths: PathsConfig{
			Corpus:     "",
			Embeddings: "",
			OutputDir:  "out",
		},
		Corpus: CorpusConfig{
			ShortLines: ShortLinesAccept,
			LowerWords: true,
		},
		Vectors: VectorsConfig{
			OnMismatch:   MismatchAbort,
			DetectHeader: false,
			Progress:     false,
		},
		Export: ExportConfig{
			DType: DTypeF32,
		},
		Server: ServerConfig{
			ListenAddr:      ":8080",
			MaxTokens:       512,
			ShutdownTimeout: 30 * time.Second,
		},
		LogLevel: "info",
	}
}

// flagKeys maps each flag registered by RegisterFlags to its config key.
var flagKeys = map[string]string{
	"paths-corpus":            "paths.corpus",
	"paths-embeddings":        "paths.embeddings",
	"paths-output-dir":        "paths.output_dir",
	"corpus-short-lines":      "corpus.short_lines",
	"corpus-lower-words":      "corpus.lower_words",
	"vectors-on-mismatch":     "vectors.on_mismatch",
	"vectors-detect-header":   "vectors.detect_header",
	"vectors-progress":        "vectors.progress",
	"export-dtype":            "export.dtype",
	"export-max-len":          "export.max_len",
	"server-listen-addr":      "server.listen_addr",
	"server-max-tokens":       "server.max_tokens",
	"server-shutdown-timeout": "server.shutdown_timeout",
	"log-level":               "log_level",
}

func RegisterFlags(fs *pflag.FlagSet, defaults Config) {
	fs.String("paths-corpus", defaults.Paths.Corpus, "Path to the labeled corpus file")
	fs.String("paths-embeddings", defaults.Paths.Embeddings, "Path to the pretrained vector file (optional)")
	fs.String("paths-output-dir", defaults.Paths.OutputDir, "Directory for prepared artifacts")
	fs.String("corpus-short-lines", defaults.Corpus.ShortLines, "Policy for one-field corpus lines (accept|reject)")
	fs.Bool("corpus-lower-words", defaults.Corpus.LowerWords, "Lowercase words before building the word index")
	fs.String("vectors-on-mismatch", defaults.Vectors.OnMismatch, "Policy for vectors of the wrong dimension (abort|skip)")
	fs.Bool("vectors-detect-header", defaults.Vectors.DetectHeader, "Treat a leading \"count dim\" line as a header")
	fs.Bool("vectors-progress", defaults.Vectors.Progress, "Show a progress bar while reading vectors")
	fs.String("export-dtype", defaults.Export.DType, "Element type of the exported matrix (F32|F16|BF16)")
	fs.Int("export-max-len", defaults.Export.MaxLen, "Also export sequences padded to this length (0 disables)")
	fs.String("server-listen-addr", defaults.Server.ListenAddr, "HTTP listen address")
	fs.Int("server-max-tokens", defaults.Server.MaxTokens, "Maximum tokens per /encode request")
	fs.Duration("server-shutdown-timeout", defaults.Server.ShutdownTimeout, "Graceful shutdown timeout")
	fs.String("log-level", defaults.LogLevel, "Log level (debug|info|warn|error)")
}

func Load(opts LoadOptions) (Config, error) {
	v := viper.New()

	setDefaults(v, opts.Defaults)

	if opts.Cmd != nil {
		if err := bindFlags(v, opts.Cmd.Flags()); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	v.SetEnvPrefix("SEQPREP")
	replacer := strings.NewReplacer("-", "_", ".", "_")
	v.SetEnvKeyReplacer(replacer)
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)

		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	} else {
		v.SetConfigName("seqprep")
		v.AddConfigPath(".")

		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	return cfg, nil
}

// Normalize validates the enum settings and returns them in canonical form.
func (c Config) Normalize() (Config, error) {
	var err error

	if c.Corpus.ShortLines, err = NormalizeShortLines(c.Corpus.ShortLines); err != nil {
		return Config{}, err
	}

	if c.Vectors.OnMismatch, err = NormalizeMismatch(c.Vectors.OnMismatch); err != nil {
		return Config{}, err
	}

	if c.Export.DType, err = NormalizeDType(c.Export.DType); err != nil {
		return Config{}, err
	}

	if c.Export.MaxLen < 0 {
		return Config{}, fmt.Errorf("invalid export.max_len %d (must be >= 0)", c.Export.MaxLen)
	}

	if c.Server.MaxTokens < 0 {
		return Config{}, fmt.Errorf("invalid server.max_tokens %d (must be >= 0)", c.Server.MaxTokens)
	}

	return c, nil
}

func setDefaults(v *viper.Viper, c Config) {
	v.SetDefault("paths.corpus", c.Paths.Corpus)
	v.SetDefault("paths.embeddings", c.Paths.Embeddings)
	v.SetDefault("paths.output_dir", c.Paths.OutputDir)
	v.SetDefault("corpus.short_lines", c.Corpus.ShortLines)
	v.SetDefault("corpus.lower_words", c.Corpus.LowerWords)
	v.SetDefault("vectors.on_mismatch", c.Vectors.OnMismatch)
	v.SetDefault("vectors.detect_header", c.Vectors.DetectHeader)
	v.SetDefault("vectors.progress", c.Vectors.Progress)
	v.SetDefault("export.dtype", c.Export.DType)
	v.SetDefault("export.max_len", c.Export.MaxLen)
	v.SetDefault("server.listen_addr", c.Server.ListenAddr)
	v.SetDefault("server.max_tokens", c.Server.MaxTokens)
	v.SetDefault("server.shutdown_timeout", c.Server.ShutdownTimeout)
	v.SetDefault("log_level", c.LogLevel)
}

// bindFlags binds each known flag present in fs to its nested key. Flags
// the command does not define are skipped.
func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}

		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}

	return nil
}
