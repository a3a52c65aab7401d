package main

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/godosou/dfsql/compiler"
	"github.com/godosou/dfsql/dfsqlerr"
	"github.com/godosou/dfsql/optimizer"
	"github.com/godosou/dfsql/resolver"
)

type compileConfig struct {
	catalogPath   string
	semanticModel string
	metrics       []string
	groupBy       []string
	resultTable   string
	engine        string
	optLevel      int
	planID        string
	verbose       bool
}

func newCompileCommand() *cobra.Command {
	cfg := &compileConfig{}

	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Compile a metric request against a catalog into a SQL plan",
		Example: `  # Compile bookings_total grouped by listing against a catalog
  dfsqlc compile --catalog catalog.json --semantic-model bookings_source \
    --metric bookings_total --group-by listing`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(cmd, cfg)
		},
	}

	cmd.Flags().StringVar(&cfg.catalogPath, "catalog", "", "path to the semantic-model catalog JSON file")
	cmd.Flags().StringVar(&cfg.semanticModel, "semantic-model", "", "name of the semantic model in the catalog to read from")
	cmd.Flags().StringArrayVar(&cfg.metrics, "metric", nil, "metric to compute (repeatable)")
	cmd.Flags().StringArrayVar(&cfg.groupBy, "group-by", nil, "dimension or entity to group the result by (repeatable)")
	cmd.Flags().StringVar(&cfg.resultTable, "result-table", "query_result", "name of the table the plan writes its result to")
	cmd.Flags().StringVar(&cfg.engine, "engine", "generic", "target engine: generic, bigquery, snowflake, redshift, duckdb, postgres")
	cmd.Flags().IntVar(&cfg.optLevel, "opt-level", 0, "optimization level (0-4); no passes are wired at any level")
	cmd.Flags().StringVar(&cfg.planID, "plan-id", "cli", "identifier attached to compiler log lines")
	cmd.Flags().BoolVar(&cfg.verbose, "verbose", false, "emit compiler log lines to stderr")

	cmd.MarkFlagRequired("catalog")       //nolint:errcheck
	cmd.MarkFlagRequired("semantic-model") //nolint:errcheck
	cmd.MarkFlagRequired("metric")        //nolint:errcheck

	return cmd
}

func parseEngine(s string) (compiler.EngineKind, error) {
	switch s {
	case "generic":
		return compiler.EngineGeneric, nil
	case "bigquery":
		return compiler.EngineBigQuery, nil
	case "snowflake":
		return compiler.EngineSnowflake, nil
	case "redshift":
		return compiler.EngineRedshift, nil
	case "duckdb":
		return compiler.EngineDuckDB, nil
	case "postgres":
		return compiler.EnginePostgres, nil
	default:
		return 0, errors.Errorf("dfsqlc: unknown engine %q", s)
	}
}

func runCompile(cmd *cobra.Command, cfg *compileConfig) error {
	if cfg.optLevel < int(compiler.OptimizationO0) || cfg.optLevel > int(compiler.OptimizationO4) {
		return errors.Errorf("dfsqlc: opt-level must be between %d and %d", compiler.OptimizationO0, compiler.OptimizationO4)
	}
	engine, err := parseEngine(cfg.engine)
	if err != nil {
		return err
	}

	catalog, err := loadCatalog(cfg.catalogPath)
	if err != nil {
		return err
	}

	src, err := buildSourceDataset(catalog, cfg.semanticModel)
	if err != nil {
		return err
	}
	m, err := buildManifest(catalog, cfg.semanticModel)
	if err != nil {
		return err
	}

	root, err := buildPlan(src, m, planRequest{
		Metrics:     cfg.metrics,
		GroupBy:     cfg.groupBy,
		ResultTable: cfg.resultTable,
	})
	if err != nil {
		return err
	}

	logger := zap.NewNop()
	if cfg.verbose {
		l, err := zap.NewDevelopment()
		if err != nil {
			return dfsqlerr.Wrap(err, "construct logger")
		}
		logger = l
	}
	defer logger.Sync() //nolint:errcheck

	c := compiler.New(resolver.NewDefaultResolver(), m, buildTimeSpine(catalog), map[compiler.OptimizationLevel]optimizer.Pipeline{}, logger)

	outSet, sqlNode, err := c.Compile(engine, root, compiler.OptimizationLevel(cfg.optLevel), cfg.planID)
	if err != nil {
		return dfsqlerr.Wrap(err, "compile plan")
	}

	out := cmd.OutOrStdout()
	printSQLPlan(out, sqlNode, "")
	printInstanceSet(out, outSet)
	return nil
}
