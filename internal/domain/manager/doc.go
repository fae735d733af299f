/*
Package manager orchestrates form groups, the reuse cache and asset loads.

# Opening forms

Open consults the cache first. A cached instance is reused synchronously:
it keeps its serial id, is moved on top of the requested group (or brought
back to the top if it is already open there) and the returned future is
already complete. On a miss the asset is loaded on a background goroutine;
the continuation is posted to the dispatch queue and runs during a later
Tick, where the instance is created, cached and opened.

Opens of an asset that is still loading join that load. They are served in
call order once it completes, so only one instance per asset ever exists.

# Threading

The manager is not safe for concurrent use. The host calls Tick from its UI
goroutine; everything else (HTTP handlers, settings watchers) goes through
Queue().Invoke or Queue().Post.

# Eviction

When the cache evicts an instance that is still open, the manager first
closes it in its group and refreshes the group, then the cache releases it.

# Usage

	m, err := manager.NewManager(manager.Config{CacheCapacity: 16}, loader, logger)
	if err != nil {
		return err
	}
	m.WithMetrics(metrics).WithLogicFactory(logic.NewFactory(logic.DefaultConfig(), logger))
	m.AddGroup("Main", 0)

	m.Open("Dialog", "Main", true).OnComplete(func(f *form.Instance, err error) {
		// runs on the UI goroutine
	})

	for range ticker.C {
		m.Tick(16 * time.Millisecond)
	}
*/
package manager
