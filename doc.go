// Package geopartition partitions large geospatial columnar datasets into
// smaller files for distributed query engines that prune at file level.
//
// Four strategies are supported: string-column value or prefix, H3 cell at a
// fixed resolution, balanced spatial KD-tree, and administrative-boundary
// membership via a spatial join against a cached reference dataset.
//
// # Quick Start
//
// Partition a source by KD-tree into 16 balanced spatial partitions and
// write Hive-style zstd output:
//
//	strategy, err := partition.NewKDTree(
//	    partition.WithPartitions(16),
//	    partition.WithExactMedians(),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	engine, err := geopartition.New(strategy,
//	    write.NewLocalSink("./out"),
//	    geopartition.WithWriteOptions(write.WithStyle(write.Hive)),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := engine.Run(ctx, src)
//
// # Preview and Analysis
//
// Every run analyzes the planned distribution before touching the output
// root. Skewed or fragmented mappings abort the write unless forced:
//
//	_, err = engine.Run(ctx, src)
//	if errors.Is(err, geopartition.ErrAnalysisAborted) {
//	    // inspect result.Report.Warnings, re-run with WithForce()
//	}
//
// Preview mode stops after analysis and never writes:
//
//	engine, _ := geopartition.New(strategy, nil, geopartition.WithPreview(20))
//
// # Admin Boundaries
//
// The AdminBoundary strategy joins row centroids against a named boundary
// dataset (gaul, overture, or custom), downloaded once into a shared cache:
//
//	cache, err := admin.OpenCache("/var/cache/geopartition")
//	strategy, err := partition.NewAdminBoundary(cache, "gaul",
//	    []string{"continent", "country"})
//
// Download metrics flow through the cache's observer hook; a collector's
// RecordDownload method wires in directly:
//
//	metrics := &geopartition.BasicMetricsCollector{}
//	cache, err := admin.OpenCache("/var/cache/geopartition",
//	    admin.WithDownloadObserver(metrics.RecordDownload))
package geopartition
