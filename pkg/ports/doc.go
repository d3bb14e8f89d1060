/*
Package ports defines the driven ports (interfaces) of procmeta.

These interfaces decouple the console and the HTTP backend from concrete
storage and transport implementations.

# Key Interfaces

  - Catalog: backend repository of types, states and operations (memory, SQLite, Postgres).
  - API: client view of the REST endpoints, implemented over HTTP by pkg/client.
  - PreferenceStore: small key/value store for the persisted selection and theme.

Each storage interface ships a reusable contract suite (RunCatalogContract,
RunPreferenceStoreContract) that adapters run from their own tests.
*/
package ports
