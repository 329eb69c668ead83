// Package http exposes the conference controller to host applications over
// a small REST surface built on Gin.
//
// Endpoints mirror the plugin methods a host calls:
//   - POST /conference/open        openConference
//   - POST /conference/connect     connect
//   - POST /conference/disconnect  disconnect
//   - POST /conference/privacy     setPrivacy
//   - POST /conference/camera/cycle cycleCamera
//   - POST /conference/mode        foreground/background
//   - POST /conference/view        surface geometry
//   - POST /conference/close       closeConference
//   - GET  /conference/state       snapshot
//
// Controller errors map onto status codes in StatusFor. Events are not
// returned here; they stream over the websocket endpoint.
package http
