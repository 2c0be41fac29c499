package sitemap

// RecordsHook receives the records gathered so far and returns the list to
// pass on.
type RecordsHook func(records []URLRecord) []URLRecord

// OutputHook may replace both the document kind and its records just before
// a document is rendered.
type OutputHook func(kind Kind, records []URLRecord) (Kind, []URLRecord)

// Hooks is an ordered registry of extension functions. Register hooks before
// the generator starts serving; registration is not synchronised.
type Hooks struct {
	additional   []RecordsHook
	beforeOutput []OutputHook
}

// OnAdditionalPages registers a supplier of records for the additional
// pages sitemap.
func (h *Hooks) OnAdditionalPages(fn RecordsHook) {
	h.additional = append(h.additional, fn)
}

func (h *Hooks) OnBeforeOutput(fn OutputHook) {
	h.beforeOutput = append(h.beforeOutput, fn)
}

func (h *Hooks) additionalPages() (records []URLRecord) {
	for _, fn := range h.additional {
		records = fn(records)
	}
	return
}

func (h *Hooks) applyBeforeOutput(kind Kind, records []URLRecord) (Kind, []URLRecord) {
	for _, fn := range h.beforeOutput {
		kind, records = fn(kind, records)
	}
	return kind, records
}
