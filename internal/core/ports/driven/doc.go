// Package driven defines the secondary ports: interfaces the core
// services depend on, implemented by adapters (storage, extraction,
// corpus sources, the search engine client).
package driven
