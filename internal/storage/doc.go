// Package storage owns the on-disk layout of scraped data.
//
// Restaurants are appended to one JSON array per date under
// restaurants/YYYY_MM_DD, and each restaurant menu for a slot lands in its
// own file under lunch_menu/YYYY_MM_DD. Writes go through a temp file and a
// rename so readers never observe a half-written document, and restaurant
// appends hold a per-date guard (an in-process mutex plus a flock file) for
// the whole read-modify-write.
package storage
