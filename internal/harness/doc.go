// Package harness runs scripted lunch-ordering conversations against a
// fully wired service and checks their outcome.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: first_course_order
//	description: "A user orders pasta with pesto at the window table"
//	menu: ../menus/today.yaml      # relative to the scenario file
//	start: "2026-10-17T09:30:00Z"  # wall clock at the first step
//	users: [ada, bob]
//	steps:
//	  - user: ada
//	    send: /first
//	  - user: ada
//	    choose: Pasta               # option label of ada's last prompt
//	    expect:
//	      options: [Pesto, Tomato]
//	  - advance: 15m
//	  - expire: true                # run the idle reaper once
//	  - together:                   # run these concurrently
//	      - {user: ada, choose: Confirm}
//	      - {user: bob, choose: Confirm}
//	assertions:
//	  - type: order_count
//	    table: window
//	    count: 1
//	  - type: order
//	    user: ada
//	    item: Pasta
//	    condiment: Pesto
//
// # Assertion Types
//
//   - order_count: number of active orders, optionally for one table
//   - order: the user's active order matches the given fields
//   - no_order: the user has no active order
//   - session_state: the user's session is in the given state
//   - state_count: number of users whose session is in the given state
//
// # Determinism
//
// Each run uses a fresh in-memory database, a fake wall clock, and
// sequential choice tokens, order IDs and prompt references. Sequential
// scenarios therefore produce identical transcripts on every run, which
// RunWithGolden compares against testdata/golden. Scenarios with
// "together" steps are not deterministic and should rely on assertions.
//
// Updates go through the HTTP adapter, so principal checks and JSON
// encoding are part of every run.
package harness
