/*
Package domain contains the core models and rules of the procmeta catalog.

It defines the business-process metadata entities, the selection model used by
consoles, and the forest composition used to render and reparent process types.
This package is kept pure and free of I/O, following Hexagonal Architecture
principles: persistence and transport live behind the interfaces in pkg/ports.

# Key Entities

  - ProcessType: A category of business process, organized as a forest via ParentID.
  - ProcessState: A status a process instance can be in, scoped to one type.
  - ProcessOperation: A transition action available from zero or more states of a type.
  - Selection: What a console is currently looking at (type, state or operation).
  - Forest: An arena of types indexed by id plus a children index, used for rendering
    and cycle-safe reparenting.
*/
package domain
