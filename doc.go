// Package livefeed keeps a realtime order or notification feed live over a
// persistent websocket connection.
//
// One Manager owns one channel. It dials the backend event source, sends a
// keepalive frame while connected, routes inbound JSON frames to a
// subscriber, and reconnects after a fixed delay whenever the connection
// closes without Disconnect having been called:
//
//   - Connect: open the channel (asynchronous, observe Status)
//   - Disconnect: intentional close, cancels every pending timer
//   - Send: best-effort outbound frame, dropped unless connected
//
// Basic usage:
//
//	cfg, err := livefeed.ResolveConfig(livefeed.Config{})
//	if err != nil {
//	    log.Fatal().Err(err).Msg("config")
//	}
//
//	feed := livefeed.New(cfg.Descriptor(livefeed.KindRestaurant, "r-1"), livefeed.Callbacks{
//	    OnMessage: func(msg *livefeed.Message) {
//	        fmt.Println("event:", msg.Type)
//	    },
//	    OnError: livefeed.LogErrors(log.Logger),
//	}, cfg.Options()...)
//
//	feed.Connect()
//	defer feed.Close()
package livefeed
