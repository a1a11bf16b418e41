// Package pickpoint lets a ride-share app pick a real pickup or drop-off
// point (a station, terminal or other public venue) from free text.
//
// Typing goes through a debounced session that cancels superseded lookups,
// biases results towards the trip's city, ranks them by distance and only
// confirms places that are publicly accessible. When the places provider is
// unreachable or unconfigured, sessions fall back to three generic
// suggestions around the anchor city.
//
//	client, _ := pickpoint.New(ctx, pickpoint.WithAPIKey(key))
//	defer client.Close()
//
//	s := client.NewSession("Fredericton", pickpoint.Hooks{
//	    OnUpdate: func(snap pickpoint.Snapshot) { render(snap.Candidates) },
//	    OnSelect: func(p *pickpoint.SelectedPlace, err error) { confirm(p, err) },
//	})
//	defer s.Close()
//	_ = s.Input("gare")
//	...
//	_, _ = s.Select(ctx, candidateID)
package pickpoint
