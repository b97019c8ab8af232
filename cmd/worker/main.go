package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nsqio/go-nsq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/samops/filerelay/internal/audit"
	"github.com/samops/filerelay/internal/config"
	"github.com/samops/filerelay/internal/db"
	"github.com/samops/filerelay/internal/dispatch"
	"github.com/samops/filerelay/internal/envelope"
	"github.com/samops/filerelay/internal/health"
	"github.com/samops/filerelay/internal/logging"
	"github.com/samops/filerelay/internal/metrics"
	"github.com/samops/filerelay/internal/relocate"
	"github.com/samops/filerelay/internal/tracing"
	"github.com/samops/filerelay/internal/transform"
)

func main() {
	cfg := config.FromEnv()
	ctx := context.Background()

	// Initialize structured logging
	logger := logging.New("filerelay-worker")

	// Required configuration is checked before anything is consumed from the
	// queue; a gap here fails the whole invocation.
	if err := cfg.Validate(); err != nil {
		logger.Plain().WithError(err).Fatal("invalid configuration")
	}

	// Initialize OpenTelemetry tracing
	shutdown, err := tracing.InitTracing(ctx, "filerelay-worker")
	if err != nil {
		logger.Plain().WithError(err).Fatal("Failed to initialize tracing")
	}
	defer shutdown()

	// Optional audit ledger
	var pool *pgxpool.Pool
	if cfg.AuditEnabled {
		pool, err = db.Connect(ctx, cfg.DSN())
		if err != nil {
			logger.Plain().WithError(err).Fatal("audit db connect failed")
		}
		defer pool.Close()
	}

	// Storage executor
	executor, err := relocate.New(relocate.Config{
		Endpoint:          cfg.Storage.Endpoint,
		AccessKey:         cfg.Storage.AccessKey,
		SecretKey:         cfg.Storage.SecretKey,
		Region:            cfg.Storage.Region,
		UseSSL:            cfg.Storage.UseSSL,
		DestinationBucket: cfg.Storage.DestinationBucket,
	})
	if err != nil {
		logger.Plain().WithError(err).Fatal("storage client creation failed")
	}

	// Field extractor: deterministic grammar by default, hosted model when
	// configured.
	var transformer transform.Transformer = transform.Grammar{}
	if cfg.Extractor.Mode == "model" {
		transformer = transform.NewModel(transform.ModelConfig{
			APIKey:  cfg.Extractor.APIKey,
			BaseURL: cfg.Extractor.BaseURL,
			Model:   cfg.Extractor.Model,
		})
	}

	dispatcher := dispatch.New(transformer, executor, cfg.Storage.DestinationBucket, logger)
	if pool != nil {
		dispatcher = dispatcher.WithRecorder(audit.NewStore(pool))
	}

	// Prom metrics
	reg := prometheus.NewRegistry()
	metrics.MustRegister(reg)

	// HTTP health/metrics
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", health.HTTPHandler(pool))
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	httpSrv := &http.Server{Addr: cfg.Worker.HTTPPort, Handler: mux}
	go func() {
		logger.Plain().WithField("addr", httpSrv.Addr).Info("worker HTTP server starting")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Plain().WithError(err).Fatal("worker HTTP server failed")
		}
	}()

	// NSQ consumer
	conf := nsq.NewConfig()
	conf.MaxInFlight = 100
	consumer, err := nsq.NewConsumer(cfg.NSQ.NotificationsTopic, cfg.NSQ.WorkerChannel, conf)
	if err != nil {
		logger.Plain().WithError(err).Fatal("nsq consumer creation failed")
	}

	// DLQ producer
	var dlqProducer *nsq.Producer
	if cfg.Worker.PublishDLQ {
		dlqProducer, err = nsq.NewProducer(cfg.NSQ.NsqdTCPAddr, nsq.NewConfig())
		if err != nil {
			logger.Plain().WithError(err).Fatal("nsq producer for DLQ creation failed")
		}
		defer dlqProducer.Stop()
	}

	// Start backlog monitoring
	startBacklogMonitor(cfg)

	consumer.AddHandler(nsq.HandlerFunc(func(m *nsq.Message) error {
		m.DisableAutoResponse() // we manually requeue or finish

		msg := dispatch.Message{
			Body:    m.Body,
			Receipt: string(m.ID[:]),
			Ack: func(context.Context) error {
				m.Finish()
				return nil
			},
		}

		outcome := dispatcher.Process(ctx, msg)
		if outcome.Status == dispatch.StatusSuccess {
			if !m.HasResponded() {
				m.Finish()
			}
			return nil
		}

		// Failure: the queue's own redelivery handles retries; after the
		// attempt budget the notification is dead-lettered. Redelivery is
		// safe because the copy is idempotent.
		attempt := int(m.Attempts)
		reason := classifyReason(outcome.Reason)
		if attempt >= cfg.Worker.MaxAttempts {
			if cfg.Worker.PublishDLQ && dlqProducer != nil {
				dl := dispatch.NewDeadLetter(m.Body, attempt, errString(outcome.Reason),
					fmt.Sprintf("max attempts reached (%d)", attempt))
				b, _ := json.Marshal(dl)
				if err := dlqProducer.Publish(cfg.NSQ.DLQTopic, b); err != nil {
					logger.Plain().WithReceipt(msg.Receipt).WithError(err).Error("dlq publish failed")
				} else {
					logger.Plain().WithReceipt(msg.Receipt).WithField("topic", cfg.NSQ.DLQTopic).Info("dlq published")
				}
			}
			metrics.RecordDLQ()
			m.Finish() // drop from main topic
			return nil
		}

		delay := computeDelay(attempt, cfg.Worker.BackoffSchedule, cfg.Worker.JitterPercent)
		logger.Plain().WithReceipt(msg.Receipt).WithFields(map[string]any{
			"attempt": attempt,
			"delay":   delay.String(),
			"reason":  reason,
		}).Info("requeue notification")
		metrics.RecordRequeue(reason)
		m.Requeue(delay)
		return nil
	}))

	// Connecting directly to NSQD forces channel creation, instead of the channel being lazily created on first publish
	if err := consumer.ConnectToNSQD(cfg.NSQ.NsqdTCPAddr); err != nil {
		logger.Plain().WithError(err).Fatal("connect to nsqd failed")
	}
	if err := consumer.ConnectToNSQLookupd(cfg.NSQ.LookupHTTPAddr); err != nil {
		logger.Plain().WithError(err).Fatal("connect to lookupd failed")
	}

	logger.Plain().Info("worker service started")

	// Graceful stop
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGTERM, syscall.SIGINT)
	<-stop

	logger.Plain().Info("Shutting down worker service")
	consumer.Stop()
	<-consumer.StopChan
	_ = httpSrv.Shutdown(context.Background())
	logger.Plain().Info("worker service stopped")
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func computeDelay(attempt int, schedule []time.Duration, jitterPct float64) time.Duration {
	// attempt is 1-based after increment; map to schedule index
	idx := attempt - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(schedule) {
		idx = len(schedule) - 1
	}
	base := schedule[idx]
	// jitter: +/- jitterPct
	j := 1 + (rand.Float64()*2-1)*jitterPct
	if j < 0.1 {
		j = 0.1
	}
	return time.Duration(float64(base) * j)
}

func classifyReason(err error) string {
	var extErr *transform.ExtractionError
	var stErr *relocate.StorageError
	switch {
	case err == nil:
		return "other"
	case errors.As(err, &extErr):
		return "extraction"
	case errors.As(err, &stErr):
		return "storage"
	case errors.Is(err, envelope.ErrNoRecords):
		return "envelope"
	default:
		return "decode"
	}
}

// startBacklogMonitor starts a goroutine to periodically update queue backlog metrics
func startBacklogMonitor(cfg config.Config) {
	go func() {
		logger := logging.New("filerelay-worker-monitor")
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()

		httpClient := &http.Client{Timeout: 5 * time.Second}

		for range ticker.C {
			resp, err := httpClient.Get(fmt.Sprintf("http://%s/stats?format=json", cfg.NSQ.NsqdHTTPAddr))
			if err != nil {
				logger.Plain().WithError(err).Error("Failed to get NSQ stats")
				continue
			}

			var stats struct {
				Topics []struct {
					Name     string `json:"topic_name"`
					Channels []struct {
						Name  string `json:"channel_name"`
						Depth int64  `json:"depth"`
					} `json:"channels"`
				} `json:"topics"`
			}

			if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
				resp.Body.Close()
				logger.Plain().WithError(err).Error("Failed to decode NSQ stats")
				continue
			}
			resp.Body.Close()

			for _, topic := range stats.Topics {
				if topic.Name != cfg.NSQ.NotificationsTopic {
					continue
				}
				for _, channel := range topic.Channels {
					if channel.Name == cfg.NSQ.WorkerChannel {
						metrics.UpdateQueueBacklog(float64(channel.Depth))
					}
					metrics.UpdateTopicDepth(topic.Name, channel.Name, float64(channel.Depth))
				}
			}
		}
	}()
}
