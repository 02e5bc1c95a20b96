package services

import "os"

// auditFallback is where an audit.Append failure itself gets logged,
// since a failed audit write must never abort the mutation it describes.
var auditFallback = os.Stderr
