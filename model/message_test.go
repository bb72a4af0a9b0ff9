package model

import "testing"

func TestRecordKey(t *testing.T) {
	a := Record{Invoice: "1", RawDate: "01.01.2024", User: "Петров"}
	b := Record{Invoice: "1", RawDate: "01.01.2024", User: "Петров"}
	c := Record{Invoice: "1", RawDate: "01.01.2024", User: "Сидоров"}

	if a.Key() != b.Key() {
		t.Error("equal records produced different keys")
	}
	if a.Key() == c.Key() {
		t.Error("different records produced the same key")
	}

	// Field boundaries must not be confusable by concatenation.
	d := Record{Invoice: "1a", RawDate: "b", User: "c"}
	e := Record{Invoice: "1", RawDate: "ab", User: "c"}
	if d.Key() == e.Key() {
		t.Error("shifted field contents produced the same key")
	}
}
