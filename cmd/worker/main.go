package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/plantmine/triplextract/internal/pipeline"
	"github.com/plantmine/triplextract/internal/queue"
	"github.com/plantmine/triplextract/internal/util"
	"github.com/plantmine/triplextract/pkg/export"
	"github.com/plantmine/triplextract/pkg/logger"
	"github.com/plantmine/triplextract/pkg/logger/console"
	"github.com/plantmine/triplextract/pkg/logger/tally"
	"github.com/plantmine/triplextract/pkg/mining"
	"github.com/plantmine/triplextract/pkg/nlp"
	"github.com/plantmine/triplextract/pkg/ontology"
	"github.com/plantmine/triplextract/pkg/pubmed"
	"github.com/plantmine/triplextract/pkg/store/postgres"

	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
)

func main() {
	util.LoadEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// logger
	debug := util.GetEnvBool("DEBUG", false)
	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: debug,
	})
	tallyLogger := tally.NewTally()
	logger.Init(consoleLogger, tallyLogger)

	// Init pgx client
	pgConn, err := pgxpool.New(ctx, util.GetEnv("DATABASE_URL"))
	if err != nil {
		logger.Fatal("Unable to connect to database", "err", err)
	}
	defer pgConn.Close()

	st := postgres.New(pgConn)

	// Dictionaries are imported by the loader; the worker only reads them.
	species, err := st.SpeciesDictionary(ctx)
	if err != nil {
		logger.Fatal("Failed to load species dictionary", "err", err)
	}
	if len(species) == 0 {
		logger.Fatal("Species dictionary is empty, run the loader first")
	}
	traits, err := st.TraitDictionary(ctx)
	if err != nil {
		logger.Fatal("Failed to load trait dictionary", "err", err)
	}
	if len(traits) == 0 {
		logger.Fatal("Trait dictionary is empty, run the loader first")
	}
	logger.Info("Dictionaries loaded", "species", len(species), "traits", len(traits))

	filters := pubmed.Filters{
		Species:          species,
		SpeciesBlocklist: loadBlocklist(util.GetEnvString("SPECIES_BLOCKLIST_PATH", "")),
		GeneBlocklist:    loadBlocklist(util.GetEnvString("GENE_BLOCKLIST_PATH", "")),
	}

	analyzer, err := nlp.NewAnalyzer()
	if err != nil {
		logger.Fatal("Failed to create analyzer", "err", err)
	}
	matcher, err := nlp.NewMatcher(analyzer, traits)
	if err != nil {
		logger.Fatal("Failed to build trait matcher", "err", err)
	}

	miner := pipeline.NewMiner(pipeline.NewMinerParams{
		Store:       st,
		Matcher:     matcher,
		Builder:     mining.NewBuilder(st, analyzer, species),
		Filters:     filters,
		Concurrency: util.GetEnvInt("MATCH_CONCURRENCY", 4),
	})

	// The exporter walks the trait hierarchy, which only the OBO file
	// carries.
	ontologyFile, err := os.Open(util.GetEnv("TRAIT_ONTOLOGY_PATH"))
	if err != nil {
		logger.Fatal("Failed to open trait ontology", "err", err)
	}
	traitOntology, err := ontology.Parse(ontologyFile)
	ontologyFile.Close()
	if err != nil {
		logger.Fatal("Failed to parse trait ontology", "err", err)
	}
	exporter := export.NewExporter(st, traitOntology, traits)

	// Init rabbitmq
	conn := queue.Init()
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open channel", "err", err)
	}
	defer ch.Close()

	queues := []string{queue.MineQueue, queue.ExportQueue}
	err = queue.SetupQueues(ch, queues)
	if err != nil {
		logger.Fatal("Failed to set up queues", "err", err)
	}

	logger.Info("Listening for messages")

	// Single consumer channel with prefetch=1 so only one job runs at a
	// time across both queues.
	consumerCh, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open consumer channel", "err", err)
	}
	defer consumerCh.Close()

	err = consumerCh.Qos(1, 0, true)
	if err != nil {
		logger.Fatal("Failed to set QoS", "err", err)
	}

	type queuedMessage struct {
		msg       amqp.Delivery
		queueName string
	}

	messageChan := make(chan queuedMessage)

	for _, queueName := range queues {
		go func(qName string) {
			consumerTag := fmt.Sprintf("%s_consumer", qName)
			msgs, err := consumerCh.Consume(
				qName,
				consumerTag,
				false, // autoAck
				false, // exclusive
				false, // noLocal
				false, // noWait
				nil,   // args
			)
			if err != nil {
				logger.Fatal("Failed to start consuming", "queue", qName, "err", err)
			}

			for {
				select {
				case <-ctx.Done():
					logger.Info("Stopping consumer", "queue", qName)
					return
				case msg, ok := <-msgs:
					if !ok {
						logger.Info("Message channel closed", "queue", qName)
						return
					}
					messageChan <- queuedMessage{msg: msg, queueName: qName}
				}
			}
		}(queueName)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				logger.Info("Stopping message processor")
				return
			case qm := <-messageChan:
				startTime := time.Now()
				logger.Info("Received message", "queue", qm.queueName)

				var processingErr error
				switch qm.queueName {
				case queue.MineQueue:
					processingErr = queue.ProcessMineMessage(ctx, miner, string(qm.msg.Body))
				case queue.ExportQueue:
					processingErr = queue.ProcessExportMessage(ctx, exporter, string(qm.msg.Body))
				}

				// If there was an error send to retry or dead-letter,
				// otherwise ack the message
				if processingErr != nil {
					logger.Error("Error processing message", "queue", qm.queueName, "err", processingErr)
					handleProcessingError(consumerCh, qm.msg, qm.queueName)
				} else {
					err = qm.msg.Ack(false)
					if err != nil {
						logger.Error("Failed to ack message", "err", err)
					}
					logger.Info("Message processed successfully", "queue", qm.queueName)
				}

				processingDuration := time.Since(startTime)
				hours := int(processingDuration.Hours())
				minutes := int(processingDuration.Minutes()) % 60
				seconds := int(processingDuration.Seconds()) % 60
				logger.Info(
					"Processing time",
					"duration", fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds),
					"warnings", tallyLogger.Warnings(),
					"errors", tallyLogger.Errors(),
				)
				logger.Info("Waiting for next message")
			}
		}
	}()

	<-ctx.Done()
	logger.Info("Shutdown signal received, exiting...", "warnings", tallyLogger.Warnings(), "errors", tallyLogger.Errors())
}

func loadBlocklist(path string) map[string]struct{} {
	if path == "" {
		return map[string]struct{}{}
	}
	blocklist, err := util.LoadBlocklist(path)
	if err != nil {
		logger.Fatal("Failed to load blocklist", "path", path, "err", err)
	}
	return blocklist
}

func handleProcessingError(ch *amqp.Channel, msg amqp.Delivery, queueName string) {
	retries := 0
	if val, ok := msg.Headers["x-retries"]; ok {
		if v, ok := val.(int32); ok {
			retries = int(v)
		}
	}

	// If message has been retried 10 times, send to dead-letter
	if retries >= 10 {
		dlqName := queueName + "_dlq"
		logger.Info("Sending message to DLQ", "dlq", dlqName)
		pubErr := ch.Publish(
			"",
			dlqName,
			false,
			false,
			amqp.Publishing{
				ContentType: "text/plain",
				Body:        msg.Body,
				Headers:     msg.Headers,
			},
		)
		if pubErr != nil {
			logger.Error("Failed to publish to DLQ", "dlq", dlqName, "err", pubErr)
			msg.Nack(false, true)
			return
		}
		msg.Ack(false)
		return
	}

	retryName := queueName + "_retry"
	headers := msg.Headers
	if headers == nil {
		headers = amqp.Table{}
	}
	headers["x-retries"] = retries + 1

	pubErr := ch.Publish(
		"",
		retryName,
		false,
		false,
		amqp.Publishing{
			ContentType: "text/plain",
			Body:        msg.Body,
			Headers:     headers,
		},
	)
	if pubErr != nil {
		logger.Error("Failed to publish to retry queue", "retry_queue", retryName, "err", pubErr)
		msg.Nack(false, true)
		return
	}
	msg.Ack(false)
}
