// Package api exposes the quiz generation pipeline over HTTP: creating a
// quiz from uploaded files and polling the progress of its generation job.
//
// Handlers depend on small service interfaces and translate service errors
// into status codes in one place (MapErrorToStatusCode), so internal error
// text never reaches clients.
package api
