/*
Package console implements an editing session over a procmeta backend.

A Session is the explicit context object that a front end (the CLI, a TUI, an
agent) drives. It owns:

  - the cached server lists fetched through ports.API,
  - the pending-changes buffer that overlays local edits on those lists,
  - the selection (type, and at most one of state or operation),
  - the expand/collapse state of the type tree,
  - the theme preference.

Views such as Types, States and Forest always return the effective data: the
server lists with the buffered creates, updates and deletes applied.

# Saving

Save validates every buffered entity before any network call. It then flushes
the buffer either as individual requests (SaveSequential, per kind in the order
types, states, operations and within a kind creates, updates, deletes) or as a
single POST /save-all (SaveBatch). The buffer is cleared only when every call
succeeded. A Save issued while another is running fails with
domain.ErrSaveInProgress.
*/
package console
