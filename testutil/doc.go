// Package testutil provides test doubles and message builders for the edge
// client.
//
// MockTransport satisfies the client's transport contract without a broker.
// It records every command sent and lets a test inject decoded events
// synchronously, so a test controls exactly when a notification or heartbeat
// reaches the client:
//
//	tr := testutil.NewMockTransport()
//	c := client.New("ops", tr)
//	require.NoError(t, c.Start(ctx))
//
//	future := c.Deploy(ctx, "gts-1", "cam")
//	tr.Inject(ctx, testutil.PipelineNotification("gts-1", "cam", message.PipelineOK))
//
// The builders (Heartbeat, DCT, Plugin, Notification, Payload) produce
// message values with the fields a test usually needs and nothing else.
package testutil
