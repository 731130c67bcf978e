/*
Package ports defines the driven ports (interfaces) for dgwatch.

These interfaces decouple the observer core from the host application, allowing the
same watcher and reactor logic to run against an in-memory graph in tests, a scene
loaded from disk, or any other host that can deliver attribute notifications.

# Key Interfaces

  - Messages: Subscribe and unsubscribe attribute-change and node-removal callbacks.
  - Graph: The host's node/attribute/connection API, including node type registration.
  - SceneStore: Responsible for persisting and loading scene snapshots.
*/
package ports
