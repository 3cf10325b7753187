// Package archive keeps a copy of sent messages removed by retention cleanup.
//
// S3Archiver writes each cleanup batch to an S3-compatible bucket as one
// JSON Lines object, one SentMessage per line, including its snapshot:
//
//	a, err := archive.New(cfg)
//	p := mailvault.New(cfg, templates, sent, sender, mailvault.WithArchiver(a))
package archive
