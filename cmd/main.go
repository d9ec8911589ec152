package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/airenas/asr-aligner/internal/align"
	"github.com/airenas/asr-aligner/internal/asr"
	"github.com/airenas/asr-aligner/internal/media"
	"github.com/airenas/asr-aligner/internal/service"
	"github.com/airenas/asr-aligner/internal/store"
	"github.com/airenas/go-app/pkg/goapp"
	"github.com/labstack/gommon/color"
)

func main() {
	goapp.StartWithDefault()

	printBanner()

	cfg := goapp.Config

	ctx, cancelFunc := context.WithCancel(context.Background())
	defer cancelFunc()

	docStore, err := store.NewClient(cfg.GetString("store.url"), cfg.GetString("store.key"))
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init document store")
	}

	data := &service.Data{}
	data.Ctx = ctx
	data.Port = cfg.GetInt("port")
	data.Store = docStore

	var locks store.Locker
	if redisURL := cfg.GetString("redis.url"); redisURL != "" {
		rm, err := store.NewRedisManager(redisURL, cfg.GetString("encryption.key"))
		if err != nil {
			goapp.Log.Fatal().Err(err).Msg("can't init redis")
		}
		defer rm.Close()
		locks = rm
		data.Cache = rm
	} else {
		goapp.Log.Warn().Msg("no redis configured, using in-process locks, no cache")
		locks = store.NewMemory()
	}

	engine, err := align.NewEngine(docStore, locks)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init engine")
	}
	data.Aligner = engine

	data.Recognizer, err = newRecognizer(cfg)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init recognizer")
	}
	goapp.Log.Info().Interface("recognizer", data.Recognizer.Describe()).Send()

	data.Media, err = media.NewRetriever(cfg.GetString("media.url"), cfg.GetString("media.key"),
		cfg.GetString("scratch.dir"))
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init media retriever")
	}

	doneCh, err := service.StartWebServer(data)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't start web server")
	}

	/////////////////////// Waiting for terminate
	waitCh := make(chan os.Signal, 2)
	signal.Notify(waitCh, os.Interrupt, syscall.SIGTERM)
	select {
	case <-waitCh:
		goapp.Log.Info().Msg("Got exit signal")
	case <-doneCh:
		goapp.Log.Info().Msg("Service exit")
	}
	cancelFunc()
	select {
	case <-doneCh:
		goapp.Log.Info().Msg("All code returned. Now exit. Bye")
	case <-time.After(time.Second * 15):
		goapp.Log.Warn().Msg("Timeout gracefull shutdown")
	}
}

type config interface {
	GetString(key string) string
}

func newRecognizer(cfg config) (asr.Recognizer, error) {
	switch cfg.GetString("asr.type") {
	case "whisper":
		return asr.NewWhisperRecognizer(cfg.GetString("whisper.url"), cfg.GetString("whisper.model"))
	default:
		return asr.NewKaldiRecognizer(cfg.GetString("speech.url"))
	}
}

var (
	version = "DEV"
)

func printBanner() {
	banner :=
		`
    ASR ALIGNER v: %s

%s
________________________________________________________

`
	cl := color.New()
	cl.Printf(banner, cl.Red(version), cl.Green("https://github.com/airenas/asr-aligner"))
}
