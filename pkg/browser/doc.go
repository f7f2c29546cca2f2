// Package browser declares the collaborator contracts the startup
// orchestrator sequences: the rendering engine, add-on machinery,
// web-extension support, session and tab state, the icon cache, push
// messaging, accounts and telemetry backends.
//
// Nothing in this package does work on its own. Default implementations
// live in sibling packages (engine/headless, engine/chromium, session,
// icons, addons, webext, push, account) and hosts may substitute their own.
package browser
