package models

// Record is an item as stored, with every attribute it carries. Reads and
// the results of updates and deletes are returned as records; Card and Media
// only shape write payloads.
type Record map[string]any
