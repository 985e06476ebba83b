package nodulefed

// Close releases the volume cache. The dataset stays usable; volumes are
// simply loaded again.
func (d *Dataset) Close() error {
	if d == nil {
		return nil
	}
	if d.cache != nil {
		d.cache.Purge()
	}
	return nil
}
