package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/go-pkgz/lgr"
	"github.com/jessevdk/go-flags"
	"github.com/sashabaranov/go-openai"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/wolf-whitz/wzdetect/app/storage"
	"github.com/wolf-whitz/wzdetect/app/webapi"
	"github.com/wolf-whitz/wzdetect/lib/admission"
	"github.com/wolf-whitz/wzdetect/lib/detect"
)

type options struct {
	Server struct {
		ListenAddr string `long:"listen" env:"LISTEN" default:":8080" description:"listen address"`
		AuthPasswd string `long:"auth" env:"AUTH" default:"" description:"basic auth password for user wzdetect, disabled if empty"`
	} `group:"server" namespace:"server" env-namespace:"SERVER"`

	OpenAI struct {
		Token             string `long:"token" env:"TOKEN" description:"openai token" required:"true"`
		Model             string `long:"model" env:"MODEL" default:"text-embedding-3-small" description:"openai embedding model"`
		MaxTokensRequest  int    `long:"max-tokens-request" env:"MAX_TOKENS_REQUEST" default:"2048" description:"max embedding input in tokens"`
		MaxSymbolsRequest int    `long:"max-symbols-request" env:"MAX_SYMBOLS_REQUEST" default:"8192" description:"max embedding input in symbols, failback if tokenizer failed"`
	} `group:"openai" namespace:"openai" env-namespace:"OPENAI"`

	Detect struct {
		Threshold   float64 `long:"threshold" env:"THRESHOLD" default:"0.72" description:"similarity threshold for a corpus match"`
		MaxTokens   int     `long:"max-tokens" env:"MAX_TOKENS" default:"200" description:"max tokens checked per request"`
		MaxVariants int     `long:"max-variants" env:"MAX_VARIANTS" default:"10" description:"max adversarial variants per word"`
		Seed        int64   `long:"seed" env:"SEED" default:"0" description:"variant generation seed, 0 picks current time"`
	} `group:"detect" namespace:"detect" env-namespace:"DETECT"`

	Queue struct {
		MaxPerClient int           `long:"max-per-client" env:"MAX_PER_CLIENT" default:"20" description:"max in-flight plus queued requests per client"`
		MaxClients   int           `long:"max-clients" env:"MAX_CLIENTS" default:"10000" description:"max tracked client states"`
		TTL          time.Duration `long:"ttl" env:"TTL" default:"30m" description:"idle client state expiration"`
	} `group:"queue" namespace:"queue" env-namespace:"QUEUE"`

	DB         string `long:"db" env:"DB" default:"wzdetect.db" description:"badwords sqlite database file"`
	ImportFile string `long:"import" env:"IMPORT" description:"json-lines badwords file to import into the database before start"`

	Logger struct {
		Enabled    bool   `long:"enabled" env:"ENABLED" description:"enable rotated detection log"`
		FileName   string `long:"file" env:"FILE" default:"wzdetect.log" description:"location of detection log"`
		MaxSize    string `long:"max-size" env:"MAX_SIZE" default:"100M" description:"maximum size before it gets rotated"`
		MaxBackups int    `long:"max-backups" env:"MAX_BACKUPS" default:"10" description:"maximum number of old log files to retain"`
	} `group:"logger" namespace:"logger" env-namespace:"LOGGER"`

	Dbg bool `long:"dbg" env:"DEBUG" description:"debug mode"`
}

var revision = "local"

func main() {
	fmt.Printf("wzdetect %s\n", revision)
	var opts options
	p := flags.NewParser(&opts, flags.PrintErrors|flags.PassDoubleDash|flags.HelpFlag)
	p.SubcommandsOptional = true
	if _, err := p.Parse(); err != nil {
		if err.(*flags.Error).Type != flags.ErrHelp {
			log.Printf("[ERROR] cli error: %v", err)
		}
		os.Exit(2)
	}

	setupLog(opts.Dbg, opts.OpenAI.Token, opts.Server.AuthPasswd)
	log.Printf("[DEBUG] options: %+v", opts)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		// catch signal and invoke graceful termination
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		<-stop
		log.Printf("[WARN] interrupt signal")
		cancel()
	}()

	if err := execute(ctx, opts); err != nil {
		log.Printf("[ERROR] %v", err)
		os.Exit(1)
	}
}

func execute(ctx context.Context, opts options) error {
	db, err := storage.NewSqlite(opts.DB)
	if err != nil {
		return fmt.Errorf("can't open badwords database %s: %w", opts.DB, err)
	}
	defer db.Close()

	badwords, err := storage.NewBadwords(db)
	if err != nil {
		return fmt.Errorf("can't make badwords storage: %w", err)
	}

	if opts.ImportFile != "" {
		fh, err := os.Open(opts.ImportFile) //nolint:gosec // file path comes from the operator
		if err != nil {
			return fmt.Errorf("can't open import file %s: %w", opts.ImportFile, err)
		}
		count, err := badwords.Import(ctx, fh)
		_ = fh.Close()
		if err != nil {
			return fmt.Errorf("can't import badwords from %s: %w", opts.ImportFile, err)
		}
		log.Printf("[INFO] imported %d badwords from %s", count, opts.ImportFile)
	}

	detector, err := makeDetector(ctx, opts, badwords)
	if err != nil {
		return err
	}

	loggerWr, err := makeDetectionLogWriter(opts)
	if err != nil {
		return fmt.Errorf("can't make detection log writer: %w", err)
	}
	defer loggerWr.Close()

	queue := admission.NewQueue(opts.Queue.MaxPerClient, opts.Queue.MaxClients, opts.Queue.TTL)

	srv := webapi.NewServer(webapi.Config{
		Version:      revision,
		ListenAddr:   opts.Server.ListenAddr,
		Detector:     detector,
		Queue:        queue,
		AuthPasswd:   opts.Server.AuthPasswd,
		DetectionLog: loggerWr,
		Dbg:          opts.Dbg,
	})
	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("webapi server failed: %w", err)
	}
	return nil
}

func makeDetector(ctx context.Context, opts options, badwords *storage.Badwords) (*detect.Detector, error) {
	entries, err := badwords.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("can't load badwords corpus: %w", err)
	}
	log.Printf("[INFO] loaded %d badwords from %s", len(entries), opts.DB)

	embedder := detect.NewOpenAIEmbedder(openai.NewClient(opts.OpenAI.Token), detect.OpenAIConfig{
		Model:             opts.OpenAI.Model,
		MaxTokensRequest:  opts.OpenAI.MaxTokensRequest,
		MaxSymbolsRequest: opts.OpenAI.MaxSymbolsRequest,
	})

	detectorConfig := detect.Config{
		Threshold:   opts.Detect.Threshold,
		MaxTokens:   opts.Detect.MaxTokens,
		MaxVariants: opts.Detect.MaxVariants,
		Seed:        opts.Detect.Seed,
	}
	log.Printf("[DEBUG] detector config: %+v", detectorConfig)

	detector, err := detect.NewDetector(ctx, detectorConfig, entries, embedder)
	if err != nil {
		return nil, fmt.Errorf("can't make detector: %w", err)
	}
	return detector, nil
}

// makeDetectionLogWriter creates the writer for flagged detection reports,
// a rotated lumberjack logger when enabled and a discard writer otherwise.
func makeDetectionLogWriter(opts options) (io.WriteCloser, error) {
	if !opts.Logger.Enabled {
		return nopWriteCloser{io.Discard}, nil
	}

	sizeParse := func(inp string) (uint64, error) {
		if inp == "" {
			return 0, errors.New("empty value")
		}
		for i, sfx := range []string{"k", "m", "g", "t"} {
			if strings.HasSuffix(inp, strings.ToUpper(sfx)) || strings.HasSuffix(inp, strings.ToLower(sfx)) {
				val, err := strconv.Atoi(inp[:len(inp)-1])
				if err != nil {
					return 0, fmt.Errorf("can't parse %s: %w", inp, err)
				}
				return uint64(float64(val) * math.Pow(float64(1024), float64(i+1))), nil
			}
		}
		return strconv.ParseUint(inp, 10, 64)
	}

	maxSize, perr := sizeParse(opts.Logger.MaxSize)
	if perr != nil {
		return nil, fmt.Errorf("can't parse logger MaxSize: %w", perr)
	}
	maxSize /= 1048576

	log.Printf("[INFO] detection logger enabled for %s, max size %dM", opts.Logger.FileName, maxSize)
	return &lumberjack.Logger{
		Filename:   opts.Logger.FileName,
		MaxSize:    int(maxSize), // in MB
		MaxBackups: opts.Logger.MaxBackups,
		Compress:   true,
		LocalTime:  true,
	}, nil
}

type nopWriteCloser struct{ io.Writer }

func (n nopWriteCloser) Close() error { return nil }

func setupLog(dbg bool, secrets ...string) {
	logOpts := []lgr.Option{lgr.Msec, lgr.LevelBraces, lgr.StackTraceOnError}
	if dbg {
		logOpts = []lgr.Option{lgr.Debug, lgr.CallerFile, lgr.CallerFunc, lgr.Msec, lgr.LevelBraces, lgr.StackTraceOnError}
	}

	colorizer := lgr.Mapper{
		ErrorFunc:  func(s string) string { return color.New(color.FgHiRed).Sprint(s) },
		WarnFunc:   func(s string) string { return color.New(color.FgRed).Sprint(s) },
		InfoFunc:   func(s string) string { return color.New(color.FgYellow).Sprint(s) },
		DebugFunc:  func(s string) string { return color.New(color.FgWhite).Sprint(s) },
		CallerFunc: func(s string) string { return color.New(color.FgBlue).Sprint(s) },
		TimeFunc:   func(s string) string { return color.New(color.FgCyan).Sprint(s) },
	}
	logOpts = append(logOpts, lgr.Map(colorizer))

	nonEmpty := []string{}
	for _, s := range secrets {
		if s != "" {
			nonEmpty = append(nonEmpty, s)
		}
	}
	if len(nonEmpty) > 0 {
		logOpts = append(logOpts, lgr.Secret(nonEmpty...))
	}
	lgr.SetupStdLogger(logOpts...)
	lgr.Setup(logOpts...)
}
