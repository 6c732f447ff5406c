package source

// SetMaxBody overrides the download limit of h.
func SetMaxBody(h *HTTP, n int64) { h.maxBody = n }
