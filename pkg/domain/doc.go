/*
Package domain contains the core models of the dgwatch dependency graph.

It describes nodes, attributes, plugs and the change notifications the host graph
emits when they are mutated. This package is kept pure and free of external
dependencies like I/O or persistence, following Hexagonal Architecture principles.

# Key Entities

  - NodeRef: A weak reference to a node owned by the host graph.
  - Plug: An addressable attribute slot on a node, possibly compound.
  - AttributeEvent: A transient notification describing a value or connection change.
  - Scene: A serializable snapshot of nodes, attribute values and connections.
*/
package domain
