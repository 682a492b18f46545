// Package request correlates outbound commands with inbound notifications.
//
// Publishing a command over pub/sub gives no response. The node answers later
// with notifications addressed by path, possibly several per command and
// interleaved with unrelated traffic. A Request watches one or more paths and
// decides, from the notifications of those paths alone, whether the command
// succeeded.
//
// # Kinds
//
// The command action selects one of three completion policies:
//
//	KindSimple     UPDATE_CONFIG, PIPELINE_COMMAND
//	               first failure code or EXCEPTION rejects at once;
//	               resolves once every target reported success
//	KindAccumulate UPDATE_PIPELINE_INSTANCE, BATCH_UPDATE_PIPELINE_INSTANCE
//	               every code settles its own target; once no target is
//	               pending the request resolves if all succeeded, else rejects
//	KindArchive    ARCHIVE_CONFIG
//	               EXCEPTION or PIPELINE_ARCHIVE_FAILED rejects,
//	               PIPELINE_ARCHIVE_OK resolves, other codes are only recorded
//
// Every processed notification is recorded and handed to the callback.
// Notifications for closed requests are ignored.
//
// # Registry
//
// The Manager indexes requests by every watched path. A path owned by one
// request stays owned until that request closes; later requests for the same
// path queue behind it. Closing a request removes all of its paths.
//
//	m := request.NewManager(request.WithLogger(logger))
//	f := request.NewFuture("")
//	r, _ := m.Create(message.ActionUpdateConfig, f.OnSuccess(), f.OnFail())
//	r.Watch(message.PipelinePath("edge-1", "cam"))
//	...
//	m.Process(notification)
//	res, err := f.Wait(ctx)
//
// There is no timeout. A request stays pending until notifications settle it or
// it is destroyed; callers bound waiting with the context passed to Wait.
package request
