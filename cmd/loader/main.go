package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/plantmine/triplextract/internal/queue"
	"github.com/plantmine/triplextract/internal/util"
	"github.com/plantmine/triplextract/pkg/logger"
	"github.com/plantmine/triplextract/pkg/logger/console"
	"github.com/plantmine/triplextract/pkg/ncbi"
	"github.com/plantmine/triplextract/pkg/ontology"
	"github.com/plantmine/triplextract/pkg/store/postgres"

	"github.com/jackc/pgx/v5/pgxpool"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

func main() {
	util.LoadEnv()

	namesPath := flag.String("taxonomy-names", "", "NCBI taxonomy names.dmp file")
	nodesPath := flag.String("taxonomy-nodes", "", "NCBI taxonomy nodes.dmp file")
	genesPath := flag.String("gene-info", "", "NCBI gene_info file")
	ontologyPath := flag.String("ontology", "", "trait ontology OBO file")
	ontologyPrefix := flag.String("ontology-prefix", "TO:", "term id prefix kept from the ontology")
	blocklistPath := flag.String("term-blocklist", "", "trait synonym blocklist file, one synonym per line")
	minePath := flag.String("queue-mine", "", "enqueue a mining job for the given PubTator file")
	exportTaxID := flag.Int("queue-export", 0, "enqueue a triple export for the given tax id")
	exportOutput := flag.String("output", "triples.tsv", "output path for an enqueued export")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	debug := util.GetEnvBool("DEBUG", false)
	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: debug,
	})
	logger.Init(consoleLogger)

	databaseURL := util.GetEnv("DATABASE_URL")
	// The database may still be starting when the loader comes up.
	if err := util.RetryErr(5, func() error {
		return postgres.Migrate(migrateURL(databaseURL))
	}); err != nil {
		logger.Fatal("Failed to migrate schema", "err", err)
	}

	pgConn, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		logger.Fatal("Unable to connect to database", "err", err)
	}
	defer pgConn.Close()

	st := postgres.New(pgConn)

	if *namesPath != "" || *nodesPath != "" {
		if *namesPath == "" || *nodesPath == "" {
			logger.Fatal("Taxonomy import needs both -taxonomy-names and -taxonomy-nodes")
		}
		importSpecies(ctx, st, *namesPath, *nodesPath)
	}

	if *genesPath != "" {
		importGenes(ctx, st, *genesPath)
	}

	if *ontologyPath != "" {
		importTraits(ctx, st, *ontologyPath, *ontologyPrefix, *blocklistPath)
	}

	if *minePath != "" || *exportTaxID != 0 {
		enqueueJobs(*minePath, *exportTaxID, *exportOutput)
	}
}

func importSpecies(ctx context.Context, st *postgres.Store, namesPath, nodesPath string) {
	names, err := os.Open(namesPath)
	if err != nil {
		logger.Fatal("Failed to open names.dmp", "err", err)
	}
	defer names.Close()
	nodes, err := os.Open(nodesPath)
	if err != nil {
		logger.Fatal("Failed to open nodes.dmp", "err", err)
	}
	defer nodes.Close()

	taxonomy, err := ncbi.ParseTaxonomy(names, nodes)
	if err != nil {
		logger.Fatal("Failed to parse taxonomy", "err", err)
	}
	species := taxonomy.PlantSpecies()
	logger.Info("Parsed plant taxonomy", "species", len(species))

	if err := st.ImportSpecies(ctx, species); err != nil {
		logger.Fatal("Failed to import species dictionary", "err", err)
	}
}

func importGenes(ctx context.Context, st *postgres.Store, genesPath string) {
	file, err := os.Open(genesPath)
	if err != nil {
		logger.Fatal("Failed to open gene_info", "err", err)
	}
	defer file.Close()

	genes, err := ncbi.ParseGeneInfo(file)
	if err != nil {
		logger.Fatal("Failed to parse gene_info", "err", err)
	}
	logger.Info("Parsed gene registry", "genes", len(genes))

	if err := st.ImportGenes(ctx, genes); err != nil {
		logger.Fatal("Failed to import gene registry", "err", err)
	}
}

func importTraits(ctx context.Context, st *postgres.Store, ontologyPath, prefix, blocklistPath string) {
	blocklist := map[string]struct{}{}
	if blocklistPath != "" {
		var err error
		blocklist, err = util.LoadBlocklist(blocklistPath)
		if err != nil {
			logger.Fatal("Failed to load term blocklist", "err", err)
		}
	}

	file, err := os.Open(ontologyPath)
	if err != nil {
		logger.Fatal("Failed to open ontology", "err", err)
	}
	defer file.Close()

	traitOntology, err := ontology.Parse(file)
	if err != nil {
		logger.Fatal("Failed to parse ontology", "err", err)
	}
	traits := traitOntology.Dictionary(prefix, blocklist)
	logger.Info("Parsed trait ontology", "name", traitOntology.Name, "terms", len(traits))

	if err := st.ImportTraits(ctx, traits); err != nil {
		logger.Fatal("Failed to import trait dictionary", "err", err)
	}
}

func enqueueJobs(minePath string, exportTaxID int, exportOutput string) {
	conn := queue.Init()
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open channel", "err", err)
	}
	defer ch.Close()

	if err := queue.SetupQueues(ch, []string{queue.MineQueue, queue.ExportQueue}); err != nil {
		logger.Fatal("Failed to set up queues", "err", err)
	}

	if minePath != "" {
		correlationID, _ := gonanoid.New()
		msg, err := json.Marshal(queue.MineJobMsg{
			Message:       "Mine PubTator file",
			CorrelationID: correlationID,
			InputPath:     minePath,
		})
		if err != nil {
			logger.Fatal("Failed to marshal mine job", "err", err)
		}
		if err := queue.PublishFIFO(ch, queue.MineQueue, msg); err != nil {
			logger.Fatal("Failed to enqueue mine job", "err", err)
		}
		logger.Info("Enqueued mine job", "correlation_id", correlationID, "input", minePath)
	}

	if exportTaxID != 0 {
		correlationID, _ := gonanoid.New()
		msg, err := json.Marshal(queue.ExportJobMsg{
			Message:       "Export triples",
			CorrelationID: correlationID,
			TaxID:         exportTaxID,
			OutputPath:    exportOutput,
		})
		if err != nil {
			logger.Fatal("Failed to marshal export job", "err", err)
		}
		if err := queue.PublishFIFO(ch, queue.ExportQueue, msg); err != nil {
			logger.Fatal("Failed to enqueue export job", "err", err)
		}
		logger.Info("Enqueued export job", "correlation_id", correlationID, "tax_id", exportTaxID, "output", exportOutput)
	}
}

// migrateURL rewrites a postgres connection URL for golang-migrate's pgx/v5
// driver, which registers under the pgx5 scheme.
func migrateURL(databaseURL string) string {
	for _, scheme := range []string{"postgres://", "postgresql://"} {
		if strings.HasPrefix(databaseURL, scheme) {
			return "pgx5://" + strings.TrimPrefix(databaseURL, scheme)
		}
	}
	return databaseURL
}
