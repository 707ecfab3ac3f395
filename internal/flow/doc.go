// Package flow runs the conversational ordering state machine.
//
// An Engine consumes transport-neutral Updates and answers with Commands
// (send a prompt, or edit the previous one). Each session moves through
//
//	idle → item_selection → [condiment_selection | side_dish_selection]
//	     → table_selection → confirmation → idle
//
// driven by a transition table keyed by (state, event kind). There is one
// table for both routes: a first-course flow may stop at
// condiment_selection, a second-course flow loops in side_dish_selection.
//
// Input rules:
//   - Every choice prompt carries fresh opaque tokens. A reply must echo
//     one of the tokens of the current prompt.
//   - Free text, an unknown token, or a stale token while a choice is
//     expected aborts the flow. There is no retry.
//   - A top-level command received mid-flow aborts the flow and is then
//     handled as if the session were idle.
//
// The final confirmation hands the draft to the allocator. Replies are
// built after the allocator has released its lock.
package flow
