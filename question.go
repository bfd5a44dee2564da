package recursor

// Question is one entry of the question section.
type Question struct {
	Name   string
	Qtype  uint16
	Qclass uint16
}

func (r *wireReader) readQuestion() (q Question, err error) {
	if q.Name, err = r.readName(); err == nil {
		if q.Qtype, err = r.readU16(); err == nil {
			q.Qclass, err = r.readU16()
		}
	}
	return
}

func (q *Question) encode(w *wireWriter) (err error) {
	if err = w.writeName(q.Name); err == nil {
		w.writeU16(q.Qtype)
		w.writeU16(q.Qclass)
	}
	return
}
