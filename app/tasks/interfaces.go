package tasks

import "github.com/hindustan-founders/hfn-saved/app/catalog"

// TaskSchedulerInterface is what main needs from the background worker pool.
//
//	scheduler := NewScheduler(loader, resourceRepo, sourceRepo, httpClient, parser, summarizer, m, opts)
//	scheduler.Start()
//	defer scheduler.Stop()
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task Task) error
	EnqueueImport(source *catalog.Source) error
}
