/*
Package changes implements the pending-changes buffer of a console session.

Edits are staged locally per entity kind as created, updated and deleted sets,
overlaid on top of the server data whenever a view is rendered, and flushed to
the backend as one batch on save.

The same generic Set and Merge serve types (keyed by code), states and
operations (keyed by id).

# Deleting unsaved entities

Deleting a key that is only pending creation drops the created entry and does
not record a delete: the server never knew the entity, so there is nothing to
remove. Deleting a key that has a pending update drops the update and records
the delete so the server copy is removed on save.
*/
package changes
