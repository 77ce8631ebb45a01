// Package toast turns a stager's visible error into a user-facing
// notification.
//
// Toasts are sent to an Emitter. The HTTP server's change feed implements
// Emitter and forwards every toast to the browser as a JSON message:
//
//	{"event": "filestage:toast", "data": {"level": "error", "message": "..."}}
//
// The client decides how to render it:
//
//	// user/app.js
//	feed.addEventListener("message", (e) => {
//	    const msg = JSON.parse(e.data);
//	    if (msg.event === "filestage:toast") {
//	        showToast(msg.data.level, msg.data.message);
//	    }
//	});
//
// Server-side usage:
//
//	stager, _ := filestage.New(ctx, filestage.Options{
//	    OnError: func(msg string) {
//	        toast.ForError(feed, msg)
//	    },
//	})
package toast
