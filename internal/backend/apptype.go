package backend

// AppType names an application a WebSocket channel is registered for
type AppType string

const (
	AppTypeViewer    AppType = "viewer"
	AppTypeDictation AppType = "dictation"
	AppTypeWorklist  AppType = "worklist"
	AppTypeAdmin     AppType = "admin"
)

// AppTypes lists the application types offered by the harness.
// Other values are passed to the backend unchanged.
var AppTypes = []AppType{
	AppTypeViewer,
	AppTypeDictation,
	AppTypeWorklist,
	AppTypeAdmin,
}
