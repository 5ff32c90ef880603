// Package scanner drives credential attempts against one (host, service type)
// pair.
//
// A Session walks its usernames strictly in order. For each username the
// full password list is dispatched through a bounded worker group, and each
// outcome is acted on in arrival order according to Policy:
//
//	Success      emit a match, then stop (or move on with WithMultiple)
//	BadPassword  keep waiting for the rest of the batch
//	BadUsername  cancel the batch and move to the next username
//	Timeout      cancel everything and end the session
//	Error        cancel everything and end the session
//
// Results of attempts that finish after their batch was cancelled are
// discarded. Matches are delivered through an iter.Seq so the caller can stop
// the search at any point by breaking out of the range loop.
package scanner
