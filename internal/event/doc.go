// Package event provides the in-process event bus that carries repository
// notifications to interested components.
//
// # Event Topics
//
// Events use hierarchical topics with dot notation:
//
//	git.status.changed   - the index or working tree changed
//	git.branch.changed   - the checked-out branch may have moved
//	git.commit.created   - a commit or amend succeeded
//
// Subscriptions may use wildcards: "*" matches one segment and "**" matches
// any number of segments, so "git.**" receives every git event.
//
// # Basic Usage
//
//	bus := event.NewBus(event.WithLogger(logger))
//	defer bus.Close()
//
//	sub, err := bus.SubscribeFunc("git.**", func(ctx context.Context, ev any) error {
//	    env := ev.(event.Envelope)
//	    fmt.Println(env.Topic, env.Data()["action"])
//	    return nil
//	})
//
//	publisher := event.NewBusAdapter(bus, "git", logger)
//	repo, err := git.OpenRepository(dir, git.Options{EventBus: publisher})
//
// Delivery is synchronous in the publisher's goroutine. Handler errors and
// panics are isolated: every matching handler runs, and failures are returned
// from Publish as one aggregated error.
package event
