package recovery

// Recover turns a raw model response into a Record. It tries, in order: the whole
// text as an object, the whole text repaired, the object embedded after a prose
// prefix, and finally the labeled-section fallback. It always returns a record.
func Recover(text string) Record {
	if rec, ok := fromObject(text, "", PathStrict); ok {
		return rec
	}
	if repaired := Repair(text); repaired != text {
		if rec, ok := fromObject(repaired, "", PathRepaired); ok {
			return rec
		}
	}
	if summary, candidate, ok := Locate(text); ok {
		if rec, ok := fromEmbedded(candidate, summary); ok {
			return rec
		}
	}
	return Fallback(text)
}

func fromEmbedded(candidate, summary string) (Record, bool) {
	if rec, ok := fromObject(candidate, summary, PathEmbedded); ok {
		return rec, true
	}
	if rec, ok := fromObject(Repair(candidate), summary, PathEmbedded); ok {
		return rec, true
	}
	if cut, ok := Balanced(candidate); ok {
		return fromObject(Repair(cut), summary, PathEmbedded)
	}
	return Record{}, false
}

func fromObject(text, summary string, path Path) (Record, bool) {
	if !Valid(text) {
		return Record{}, false
	}
	obj, ok := decodeObject(text)
	if !ok {
		return Record{}, false
	}
	rec := Extract(obj)
	rec.Summary = summary
	rec.RecoveryPath = path
	return rec, true
}
