/*
Package registry tracks the observer subscriptions a plugin has installed in the host graph.

A Registry is an explicit dependency: watchers and reactors receive the instance they
install into, so tests can use isolated registries. A process-wide registry only exists
at the outermost integration boundary (the CLI and the HTTP server).

Every host callback a plugin registers goes through Install or InstallRemoval and is
released through Remove or RemoveAll, which makes the registry the single place where
host-side subscription resources are freed.
*/
package registry
