// Package transport exposes the ordering engine over HTTP.
//
// A messaging bridge (chat bot, web client) posts each inbound message to
// POST /v1/updates and renders the returned commands. Commands produced
// outside a request, such as idle-timeout notices, are collected in a
// Mailbox and fetched with GET /v1/sessions/:sessionId/messages.
//
// Identification is done upstream. The adapter only checks that the user
// named in an update is a known, enabled principal.
package transport
