// Package elektron is a client for real-time market data and machine
// readable news over the Elektron WebSocket feed.
//
// A Consumer owns one feed connection. It logs in, answers the feed's
// keep-alive pings, tracks every open item stream, and pushes traffic to
// the handlers the application registers:
//
//	consumer := elektron.New(elektron.WithApplicationID("256"))
//	consumer.OnStatus(func(code elektron.StatusCode, payload json.RawMessage) {
//		log.Printf("status %s: %s", code, payload)
//	})
//	consumer.OnMarketData(func(message json.RawMessage) {
//		log.Printf("quote: %s", message)
//	})
//	if err := consumer.Connect(ctx, "ws://ads1:15000/WebSocket", "user1"); err != nil {
//		log.Fatal(err)
//	}
//	consumer.RequestData([]string{"TRI.N", "IBM.N"}, elektron.RequestOptions{
//		Service: "ELEKTRON_DD",
//	})
//
// Market data arrives as raw JSON messages. News stories are reassembled
// from their fragmented, compressed envelopes and delivered whole through
// OnNews; see RequestNews.
//
// The Consumer does not retry anything on its own. When the connection
// drops it reports a disconnected status and keeps its stream table, so the
// application decides whether to reconnect and which items to request
// again.
package elektron
