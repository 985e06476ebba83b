// Package nodulefed prepares simulated federated-learning datasets from a
// LUNA16-style CT corpus.
//
// A dataset directory holds the candidate lists and the MetaImage volumes:
//
//	dataset/
//	|--CSVFILES/candidates.csv    seriesuid,coordX,coordY,coordZ,class
//	|--CSVFILES/annotations.csv   seriesuid,coordX,coordY,coordZ,diameter_mm
//	|--CSVFILES/seriesuids.csv    one series id per line
//	|--rawData/{seriesuid}.mhd    with .raw/.zraw data
//
// # Quick Start
//
//	ctx := context.Background()
//	ds, _ := nodulefed.Open(ctx, "./LUNA16", nodulefed.WithWorkers(8))
//	defer ds.Close()
//
//	cfg, _ := federation.LoadConfigFile("clients.csv")
//	store := blobstore.NewLocalStore("./federated")
//	report, _ := ds.Allocate(ctx, store, cfg, nodulefed.Unlimited)
//
// Allocate takes the first maxNumber candidates and chooses JPEG files for
// small pools and stacked NPY arrays otherwise. AllocateUnbalanced first caps
// each class with a SamplingPolicy and always writes JPEG files:
//
//	report, _ := ds.AllocateUnbalanced(ctx, store, cfg, federation.DefaultSamplingPolicy)
//
// # Output Layout
//
// Every run clears the store and recreates client{c}/0 and client{c}/1 for
// each config row. Per-file formats write client{c}/{class}/{id}.{ext};
// NPY writes client{c}/class{class}.npy. A manifest.json describing quotas,
// windows and written files is stored at the root.
//
// # Cloud Output
//
//	store, _ := s3.New(ctx, "my-bucket", s3.WithPrefix("luna16/fed"))
//	report, _ := ds.Allocate(ctx, store, cfg, 200)
package nodulefed
