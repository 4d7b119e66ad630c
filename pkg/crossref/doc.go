// Package crossref embeds the cross-case correlation engine in a Go ingest
// pipeline.
//
// Each worker of an ingest job starts a Worker, feeds it the items it
// processes and closes it when done. The last worker of a job to close
// flushes the buffered instances to the correlation store.
//
//	client, _ := crossref.New(ctx,
//	    crossref.WithValkey("localhost:6379", ""),
//	    crossref.WithCaseDB("postgres://localhost:5432/case"),
//	)
//	defer client.Close()
//
//	w, _ := client.StartWorker(ctx, crossref.JobSpec{
//	    ID: 42, DataSourceObjID: 1, CaseUUID: caseUUID,
//	    Flags: crossref.Flags{FlagNotable: true, SaveInstances: true},
//	})
//	res, _ := w.Process(ctx, crossref.Item{ObjectID: 7, Kind: crossref.KindFile, MD5: md5})
//	summary, _ := w.Close(ctx)
//
// Lookup, Tag and SetTypeEnabled operate on the correlation store directly
// and need no case database.
package crossref
