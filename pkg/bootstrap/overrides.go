package bootstrap

import (
	"github.com/marmos91/kestrel/internal/logger"
	"github.com/marmos91/kestrel/pkg/browser"
	"github.com/marmos91/kestrel/pkg/registry"
)

// tabOverrides are the browser operations web extensions may trigger.
//
// CloseTab removes by ID without a lookup while SelectTab ignores unknown
// IDs; the tabs use case already tolerates unknown IDs on removal.
type tabOverrides struct {
	reg *registry.Registry
}

var _ browser.ExtensionCallbacks = (*tabOverrides)(nil)

// NewTab adds a selected session for url and returns its ID, or "" if the
// session manager is unavailable.
func (o *tabOverrides) NewTab(url string, engineSession browser.EngineSession) string {
	sessions, err := o.reg.SessionManager()
	if err != nil {
		logger.Error("Cannot open extension tab", logger.KeyURL, url, logger.Err(err))
		return ""
	}
	s := browser.NewSession(url, engineSession)
	sessions.Add(s, true)
	logger.Debug("Extension opened tab", logger.SessionID(s.ID), logger.KeyURL, url)
	return s.ID
}

func (o *tabOverrides) CloseTab(id string) {
	tabs, err := o.reg.TabsUseCases()
	if err != nil {
		logger.Error("Cannot close extension tab", logger.SessionID(id), logger.Err(err))
		return
	}
	tabs.RemoveTab(id)
}

func (o *tabOverrides) SelectTab(id string) {
	sessions, err := o.reg.SessionManager()
	if err != nil {
		logger.Error("Cannot select extension tab", logger.SessionID(id), logger.Err(err))
		return
	}
	s, ok := sessions.FindByID(id)
	if !ok {
		return
	}
	tabs, err := o.reg.TabsUseCases()
	if err != nil {
		logger.Error("Cannot select extension tab", logger.SessionID(id), logger.Err(err))
		return
	}
	tabs.SelectTab(s)
}

func (o *tabOverrides) RequestPermission(req browser.PermissionRequest) {
	updater, err := o.reg.AddonUpdater()
	if err != nil {
		logger.Error("Cannot forward permission request", logger.KeyAddonID, req.AddonID, logger.Err(err))
		return
	}
	updater.OnUpdatePermissionRequest(req)
}
