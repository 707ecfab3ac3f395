// Package session keeps per-conversation state for the ordering flow.
//
// A Session holds the flow state, the draft order, the menu snapshot taken
// at flow entry, and the choice prompt the user is expected to answer.
// Sessions live in memory only; losing them on restart abandons unfinished
// drafts, which is always safe because nothing is persisted before commit.
//
// Each session is owned by one conversation at a time. Store.Acquire hands
// out exclusive access so two updates for the same session never run
// concurrently. Different sessions never share state.
package session
