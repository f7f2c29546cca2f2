package browser

// Addon describes an installed web extension.
type Addon struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Version string `json:"version"`
	Enabled bool   `json:"enabled"`
}

// PermissionRequest is raised when an add-on update asks for new permissions.
type PermissionRequest struct {
	AddonID     string   `json:"addon_id"`
	Permissions []string `json:"permissions"`
	Origins     []string `json:"origins,omitempty"`
}

// AddonManager installs and enumerates add-ons.
type AddonManager interface {
	Installed() []Addon
}

// AddonUpdater checks add-ons for updates and handles permission prompts.
type AddonUpdater interface {
	OnUpdatePermissionRequest(req PermissionRequest)
}

// AddonProvider supplies the manager and updater to the add-on worker
// machinery. Initialize may only be called once.
type AddonProvider interface {
	Initialize(manager AddonManager, updater AddonUpdater) error
}

// ExtensionCallbacks are the host operations web extensions may trigger.
type ExtensionCallbacks interface {
	// NewTab opens a tab for url backed by engineSession and returns its ID.
	NewTab(url string, engineSession EngineSession) string
	CloseTab(id string)
	SelectTab(id string)
	RequestPermission(req PermissionRequest)
}

// ExtensionSupport binds the web-extension runtime to the browser.
type ExtensionSupport interface {
	Initialize(runtime Engine, store Store, callbacks ExtensionCallbacks) error
}
