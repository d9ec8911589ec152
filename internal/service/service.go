package service

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/facebookgo/grace/gracehttp"

	"github.com/airenas/go-app/pkg/goapp"

	"github.com/airenas/asr-aligner/internal/align"
	"github.com/airenas/asr-aligner/internal/api"
	"github.com/airenas/asr-aligner/internal/asr"
	"github.com/airenas/asr-aligner/internal/domain"
	"github.com/airenas/asr-aligner/internal/store"
	"github.com/airenas/asr-aligner/internal/utils"
	"github.com/labstack/echo-contrib/prometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// Aligner merges alignments into a document.
type Aligner interface {
	Align(ctx context.Context, docID string, input []domain.Alignment) (*align.Result, error)
}

// Media materializes a document's audio to a local file.
type Media interface {
	Fetch(ctx context.Context, audioID string) (string, func(), error)
}

// AlignmentCache caches recognizer output per audio id.
type AlignmentCache interface {
	GetAlignments(ctx context.Context, audioID string) ([]domain.Alignment, bool, error)
	SaveAlignments(ctx context.Context, audioID string, als []domain.Alignment) error
}

// Data keeps data required for service work
type Data struct {
	Port       int
	Ctx        context.Context
	Aligner    Aligner
	Recognizer asr.Recognizer
	Media      Media
	Store      store.Store
	Cache      AlignmentCache

	// one transcription at a time per process, orthogonal to the
	// per-document store lock
	slot chan struct{}
}

// StartWebServer starts echo web service
func StartWebServer(data *Data) (<-chan struct{}, error) {
	goapp.Log.Info().Msgf("Starting aligner service at %d", data.Port)
	if err := validate(data); err != nil {
		return nil, err
	}
	data.slot = make(chan struct{}, 1)

	portStr := strconv.Itoa(data.Port)

	e := initRoutes(data)

	e.Server.Addr = ":" + portStr
	e.Server.ReadHeaderTimeout = 5 * time.Second
	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 15 * time.Minute

	gracehttp.SetLogger(log.New(goapp.Log, "", 0))

	res := make(chan struct{}, 1)
	go func() {
		defer close(res)
		if err := gracehttp.Serve(e.Server); err != nil {
			goapp.Log.Error().Err(err).Msg("can't start web server")
		}
		goapp.Log.Info().Msg("exit http routine")
	}()
	return res, nil
}

var promMdlw *prometheus.Prometheus

func init() {
	promMdlw = prometheus.NewPrometheus("aligner", nil)
}

func initRoutes(data *Data) *echo.Echo {
	e := echo.New()
	e.Use(middleware.Logger())
	promMdlw.Use(e)

	e.GET("/live", live(data))
	e.POST("/transcribe/:id", transcribe(data))
	e.POST("/align/:id", alignDoc(data))

	goapp.Log.Info().Msg("Routes:")
	for _, r := range e.Routes() {
		goapp.Log.Info().Msgf("  %s %s", r.Method, r.Path)
	}
	return e
}

func live(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		return c.JSONBlob(http.StatusOK, []byte(`{"service":"OK"}`))
	}
}

func validate(data *Data) error {
	if data.Aligner == nil {
		return fmt.Errorf("no Aligner")
	}
	if data.Recognizer == nil {
		return fmt.Errorf("no Recognizer")
	}
	if data.Media == nil {
		return fmt.Errorf("no Media")
	}
	if data.Store == nil {
		return fmt.Errorf("no Store")
	}
	return nil
}

// checkLive rejects new work once the service context is cancelled, so
// shutdown is not delayed by a fresh long transcription.
func checkLive(data *Data) error {
	if data.Ctx != nil && data.Ctx.Err() != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "service is shutting down")
	}
	return nil
}

func takeSlot(data *Data) (func(), error) {
	select {
	case data.slot <- struct{}{}:
		return func() { <-data.slot }, nil
	default:
		return nil, echo.NewHTTPError(http.StatusTooManyRequests, "transcription in progress")
	}
}

func transcribe(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		docID := c.Param("id")
		if docID == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "no document id")
		}
		if err := checkLive(data); err != nil {
			return err
		}
		release, err := takeSlot(data)
		if err != nil {
			return err
		}
		defer release()

		ctx, requestID := utils.WithRequestID(c.Request().Context())
		goapp.Log.Info().Str("doc", docID).Str("requestID", requestID).Msg("transcribe")

		doc, err := data.Store.FetchDocument(ctx, docID)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadGateway, fmt.Sprintf("can't fetch document: %v", err))
		}
		if doc.Audio == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "document has no audio")
		}

		als, err := getAlignments(ctx, data, doc.Audio)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadGateway, fmt.Sprintf("can't transcribe: %v", err))
		}

		res, err := data.Aligner.Align(ctx, docID, als)
		if err != nil {
			return processingError(err)
		}
		return c.JSON(http.StatusOK, toResponse(res, requestID))
	}
}

func getAlignments(ctx context.Context, data *Data, audioID string) ([]domain.Alignment, error) {
	if data.Cache != nil {
		if als, ok, err := data.Cache.GetAlignments(ctx, audioID); err != nil {
			goapp.Log.Warn().Err(err).Str("audio", audioID).Msg("cache read failed")
		} else if ok {
			goapp.Log.Info().Str("audio", audioID).Int("count", len(als)).Msg("cache hit")
			return als, nil
		}
	}

	path, cleanup, err := data.Media.Fetch(ctx, audioID)
	if err != nil {
		return nil, fmt.Errorf("fetch audio: %w", err)
	}
	defer cleanup()

	als, err := data.Recognizer.Transcribe(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("transcribe: %w", err)
	}
	if data.Cache != nil {
		if err := data.Cache.SaveAlignments(ctx, audioID, als); err != nil {
			goapp.Log.Warn().Err(err).Str("audio", audioID).Msg("cache write failed")
		}
	}
	return als, nil
}

func alignDoc(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		docID := c.Param("id")
		if docID == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "no document id")
		}
		var req api.AlignRequest
		if err := c.Bind(&req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "can't decode request")
		}
		als, err := mapAlignments(req.Alignments)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}

		if err := checkLive(data); err != nil {
			return err
		}
		release, err := takeSlot(data)
		if err != nil {
			return err
		}
		defer release()

		ctx, requestID := utils.WithRequestID(c.Request().Context())
		res, err := data.Aligner.Align(ctx, docID, als)
		if err != nil {
			return processingError(err)
		}
		return c.JSON(http.StatusOK, toResponse(res, requestID))
	}
}

func mapAlignments(in []api.AlignmentInput) ([]domain.Alignment, error) {
	res := make([]domain.Alignment, 0, len(in))
	for i, a := range in {
		al := domain.Alignment{Text: strings.TrimSpace(a.Text), Start: a.Start, End: a.End, Meta: a.Metadata}
		if !al.Valid() {
			return nil, fmt.Errorf("invalid segment %d", i)
		}
		res = append(res, al)
	}
	return res, nil
}

func processingError(err error) error {
	goapp.Log.Error().Err(err).Msg("processing failed")
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}

func toResponse(res *align.Result, requestID string) *api.ProcessResponse {
	return &api.ProcessResponse{
		Tokens:    res.Created,
		Dropped:   res.Dropped,
		Shifted:   res.Shifted,
		Sentences: res.Sentences,
		RequestID: requestID,
	}
}
