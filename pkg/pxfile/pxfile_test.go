package pxfile_test

import (
	"bytes"
	"testing"

	"github.com/pxbase/pxread/pkg/pxfile"
	"github.com/pxbase/pxread/pkg/pxfile/pxfiletest"
)

func TestOpenParsesHeader(t *testing.T) {
	b := pxfiletest.New().
		Field("Code", pxfile.TypeLong, 4).
		Field("Name", pxfile.TypeAlpha, 10)
	b.Row(pxfiletest.Long(7), pxfiletest.Alpha(10, "seven"))
	b.Row(pxfiletest.Long(8), pxfiletest.Alpha(10, "eight"))

	path, _, err := b.Write(t.TempDir(), "basic")
	if err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}

	doc := pxfile.New()
	if err := doc.Open(path); err != nil {
		t.Fatalf("Failed to open document: %v", err)
	}
	defer doc.Close()

	if doc.RecordCount() != 2 {
		t.Errorf("Expected 2 records, got %d", doc.RecordCount())
	}
	if doc.FieldCount() != 2 {
		t.Errorf("Expected 2 fields, got %d", doc.FieldCount())
	}

	fields, err := doc.Fields()
	if err != nil {
		t.Fatalf("Failed to get fields: %v", err)
	}
	if fields[0].Name != "Code" || fields[0].Type != pxfile.TypeLong || fields[0].Size != 4 {
		t.Errorf("Unexpected first field: %+v", fields[0])
	}
	if fields[1].Name != "Name" || fields[1].Type != pxfile.TypeAlpha || fields[1].Size != 10 {
		t.Errorf("Unexpected second field: %+v", fields[1])
	}
}

func TestOpenMissingFile(t *testing.T) {
	doc := pxfile.New()
	if err := doc.Open("/no/such/table.db"); err == nil {
		t.Fatal("Expected error opening a missing file")
	}
}

func TestCloseIdempotent(t *testing.T) {
	path := writeSingleLong(t)

	doc := pxfile.New()
	if err := doc.Open(path); err != nil {
		t.Fatalf("Failed to open document: %v", err)
	}
	if err := doc.Close(); err != nil {
		t.Fatalf("First close failed: %v", err)
	}
	if err := doc.Close(); err != nil {
		t.Errorf("Second close should be a no-op, got: %v", err)
	}

	if _, err := doc.Fields(); err == nil {
		t.Error("Expected error from Fields on a closed document")
	}
	if _, err := doc.RetrieveRecord(0); err == nil {
		t.Error("Expected error from RetrieveRecord on a closed document")
	}
	if doc.RecordCount() != 0 {
		t.Errorf("Closed document should report 0 records, got %d", doc.RecordCount())
	}
}

func TestRetrieveRecordScalars(t *testing.T) {
	b := pxfiletest.New().
		Field("S", pxfile.TypeShort, 2).
		Field("L", pxfile.TypeLong, 4).
		Field("A", pxfile.TypeAutoInc, 4).
		Field("N", pxfile.TypeNumber, 8).
		Field("B", pxfile.TypeLogical, 1).
		Field("D", pxfile.TypeDate, 4).
		Field("T", pxfile.TypeTime, 4).
		Field("TS", pxfile.TypeTimestamp, 8)
	b.Row(
		pxfiletest.Short(-12),
		pxfiletest.Long(99999),
		pxfiletest.Long(3),
		pxfiletest.Number(2.5),
		pxfiletest.Logical(true),
		pxfiletest.Date(719163),
		pxfiletest.Time(3600000),
		pxfiletest.Timestamp(1000),
	)

	path, _, err := b.Write(t.TempDir(), "scalars")
	if err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}

	doc := pxfile.New()
	if err := doc.Open(path); err != nil {
		t.Fatalf("Failed to open document: %v", err)
	}
	defer doc.Close()

	values, err := doc.RetrieveRecord(0)
	if err != nil {
		t.Fatalf("Failed to retrieve record: %v", err)
	}
	defer releaseAll(values)

	if values[0].Int != -12 {
		t.Errorf("Short: expected -12, got %d", values[0].Int)
	}
	if values[1].Int != 99999 {
		t.Errorf("Long: expected 99999, got %d", values[1].Int)
	}
	if values[2].Int != 3 {
		t.Errorf("AutoInc: expected 3, got %d", values[2].Int)
	}
	if values[3].Real != 2.5 {
		t.Errorf("Number: expected 2.5, got %v", values[3].Real)
	}
	if values[4].Int != 1 {
		t.Errorf("Logical: expected 1, got %d", values[4].Int)
	}
	if values[5].Int != 719163 {
		t.Errorf("Date: expected 719163, got %d", values[5].Int)
	}
	if values[6].Int != 3600000 {
		t.Errorf("Time: expected 3600000, got %d", values[6].Int)
	}
	if values[7].Real != 1000 {
		t.Errorf("Timestamp: expected 1000, got %v", values[7].Real)
	}
}

func TestAllZeroCellIsNull(t *testing.T) {
	b := pxfiletest.New().
		Field("L", pxfile.TypeLong, 4).
		Field("A", pxfile.TypeAlpha, 6)
	b.Row(b.Null(0), b.Null(1))

	path, _, err := b.Write(t.TempDir(), "nulls")
	if err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}

	doc := pxfile.New()
	if err := doc.Open(path); err != nil {
		t.Fatalf("Failed to open document: %v", err)
	}
	defer doc.Close()

	values, err := doc.RetrieveRecord(0)
	if err != nil {
		t.Fatalf("Failed to retrieve record: %v", err)
	}
	defer releaseAll(values)

	for i, v := range values {
		if !v.Null {
			t.Errorf("Field %d: expected null flag", i)
		}
	}
}

func TestLogicalFalseIsNotNull(t *testing.T) {
	b := pxfiletest.New().Field("B", pxfile.TypeLogical, 1)
	b.Row(pxfiletest.Logical(false))

	path, _, err := b.Write(t.TempDir(), "logical")
	if err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}

	doc := pxfile.New()
	if err := doc.Open(path); err != nil {
		t.Fatalf("Failed to open document: %v", err)
	}
	defer doc.Close()

	values, err := doc.RetrieveRecord(0)
	if err != nil {
		t.Fatalf("Failed to retrieve record: %v", err)
	}
	defer releaseAll(values)

	if values[0].Null {
		t.Error("Logical false must not decode as null")
	}
	if values[0].Int != 0 {
		t.Errorf("Logical false: expected 0, got %d", values[0].Int)
	}
}

func TestBlobResolution(t *testing.T) {
	payload := []byte{0xDE, 0xAD, 0x00, 0xBE, 0xEF}

	b := pxfiletest.New().
		Field("Data", pxfile.TypeBlob, 12).
		Field("Empty", pxfile.TypeBlob, 12)
	b.Row(b.Blob(12, payload), b.EmptyBlob(12))

	dir := t.TempDir()
	dbPath, mbPath, err := b.Write(dir, "blobs")
	if err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}

	doc := pxfile.New()
	if err := doc.Open(dbPath); err != nil {
		t.Fatalf("Failed to open document: %v", err)
	}
	defer doc.Close()

	// Without the side file the blob cannot resolve: empty buffer.
	values, err := doc.RetrieveRecord(0)
	if err != nil {
		t.Fatalf("Failed to retrieve record: %v", err)
	}
	if values[0].Buf == nil || len(values[0].Buf) != 0 {
		t.Errorf("Unresolved blob should be an empty non-nil buffer, got %v", values[0].Buf)
	}
	releaseAll(values)

	if err := doc.SetBlobFile(mbPath); err != nil {
		t.Fatalf("Failed to attach blob file: %v", err)
	}

	values, err = doc.RetrieveRecord(0)
	if err != nil {
		t.Fatalf("Failed to retrieve record: %v", err)
	}
	defer releaseAll(values)

	if !bytes.Equal(values[0].Buf, payload) {
		t.Errorf("Blob payload mismatch: got %v", values[0].Buf)
	}
	if values[1].Buf == nil || len(values[1].Buf) != 0 {
		t.Errorf("Zero-length blob should be an empty non-nil buffer, got %v", values[1].Buf)
	}
}

func TestSetBlobFileRejection(t *testing.T) {
	path := writeSingleLong(t)

	doc := pxfile.New()
	if err := doc.Open(path); err != nil {
		t.Fatalf("Failed to open document: %v", err)
	}
	defer doc.Close()

	if err := doc.SetBlobFile("/no/such/file.mb"); err == nil {
		t.Error("Expected error attaching a missing blob file")
	}

	// The document stays usable after a rejected attach.
	if _, err := doc.RetrieveRecord(0); err != nil {
		t.Errorf("Document unusable after rejected blob attach: %v", err)
	}
}

func TestOutstandingValues(t *testing.T) {
	b := pxfiletest.New().
		Field("L", pxfile.TypeLong, 4).
		Field("A", pxfile.TypeAlpha, 4)
	b.Row(pxfiletest.Long(1), pxfiletest.Alpha(4, "x"))

	path, _, err := b.Write(t.TempDir(), "leaks")
	if err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}

	doc := pxfile.New()
	if err := doc.Open(path); err != nil {
		t.Fatalf("Failed to open document: %v", err)
	}
	defer doc.Close()

	values, err := doc.RetrieveRecord(0)
	if err != nil {
		t.Fatalf("Failed to retrieve record: %v", err)
	}

	if doc.OutstandingValues() != 2 {
		t.Errorf("Expected 2 outstanding values, got %d", doc.OutstandingValues())
	}

	values[0].Release()
	values[0].Release() // double release is a no-op
	values[1].Release()

	if doc.OutstandingValues() != 0 {
		t.Errorf("Expected 0 outstanding values after release, got %d", doc.OutstandingValues())
	}
}

func TestCodepageTranscoding(t *testing.T) {
	// 0x81 is u-umlaut in CP437.
	b := pxfiletest.New().Codepage(437).Field("A", pxfile.TypeAlpha, 4)
	b.Row([]byte{'f', 0x81, 'r', 0x00})

	path, _, err := b.Write(t.TempDir(), "cp437")
	if err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}

	doc := pxfile.New()
	if err := doc.Open(path); err != nil {
		t.Fatalf("Failed to open document: %v", err)
	}
	defer doc.Close()

	if doc.CodepageNumber() != 437 {
		t.Errorf("Expected codepage 437, got %d", doc.CodepageNumber())
	}

	values, err := doc.RetrieveRecord(0)
	if err != nil {
		t.Fatalf("Failed to retrieve record: %v", err)
	}
	defer releaseAll(values)

	if got := string(values[0].Buf); got != "für" {
		t.Errorf("Expected transcoded text %q, got %q", "für", got)
	}
}

func TestBCDDecoding(t *testing.T) {
	b := pxfiletest.New().
		Field("Dec", pxfile.TypeBCD, 2).
		Field("Neg", pxfile.TypeBCD, 2).
		Field("Blank", pxfile.TypeBCD, 2)
	b.Row(
		pxfiletest.BCD(false, "1234"),
		pxfiletest.BCD(true, "500"),
		pxfiletest.BlankBCD(),
	)

	path, _, err := b.Write(t.TempDir(), "bcd")
	if err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}

	doc := pxfile.New()
	if err := doc.Open(path); err != nil {
		t.Fatalf("Failed to open document: %v", err)
	}
	defer doc.Close()

	values, err := doc.RetrieveRecord(0)
	if err != nil {
		t.Fatalf("Failed to retrieve record: %v", err)
	}
	defer releaseAll(values)

	if got := string(values[0].Buf); got != "12.34" {
		t.Errorf("BCD: expected 12.34, got %q", got)
	}
	if got := string(values[1].Buf); got != "-5.00" {
		t.Errorf("Negative BCD: expected -5.00, got %q", got)
	}
	if got := string(values[2].Buf); got != "-??????????????????????????.??????" {
		t.Errorf("Blank BCD: expected the blank sentinel, got %q", got)
	}
}

func TestRetrieveRecordOutOfRange(t *testing.T) {
	path := writeSingleLong(t)

	doc := pxfile.New()
	if err := doc.Open(path); err != nil {
		t.Fatalf("Failed to open document: %v", err)
	}
	defer doc.Close()

	if _, err := doc.RetrieveRecord(5); err == nil {
		t.Error("Expected error for out-of-range record index")
	}
	if _, err := doc.RetrieveRecord(-1); err == nil {
		t.Error("Expected error for negative record index")
	}
}

func TestPasswordChecksum(t *testing.T) {
	a := pxfile.PasswordChecksum("secret")
	if a != pxfile.PasswordChecksum("secret") {
		t.Error("Checksum must be deterministic")
	}
	if a == pxfile.PasswordChecksum("Secret") {
		t.Error("Different passwords should not collide on trivial inputs")
	}
	if a == 0 {
		t.Error("Non-empty password should not produce the unencrypted marker")
	}
}

func TestEncryptionChecksumInHeader(t *testing.T) {
	b := pxfiletest.New().Encrypt("hunter2").Field("L", pxfile.TypeLong, 4)
	b.Row(pxfiletest.Long(1))

	path, _, err := b.Write(t.TempDir(), "enc")
	if err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}

	doc := pxfile.New()
	if err := doc.Open(path); err != nil {
		t.Fatalf("Failed to open document: %v", err)
	}
	defer doc.Close()

	if doc.EncryptionChecksum() != pxfile.PasswordChecksum("hunter2") {
		t.Error("Header encryption word does not match the password checksum")
	}
}

func writeSingleLong(t *testing.T) string {
	t.Helper()
	b := pxfiletest.New().Field("L", pxfile.TypeLong, 4)
	b.Row(pxfiletest.Long(42))
	path, _, err := b.Write(t.TempDir(), "single")
	if err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}
	return path
}

func releaseAll(values []*pxfile.Value) {
	for _, v := range values {
		v.Release()
	}
}
