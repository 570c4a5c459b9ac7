// Package session coalesces bursts of state changes into one deferred update.
//
// A Session is a nestable counter. Start returns a Guard whose Close
// decrements it; only the outermost Close runs the batched work and the
// requested update, using the reason given to the outermost Start:
//
//	guard := s.Start(model.ReasonBindService)
//	defer guard.Close()
package session
