package documents

import "testing"

func TestDeriveFileType(t *testing.T) {
	tests := []struct {
		mime, name string
		want       FileType
	}{
		{"application/pdf", "report.pdf", FileTypePDF},
		{"application/msword", "letter.doc", FileTypeDoc},
		{"application/vnd.openxmlformats-officedocument.wordprocessingml.document", "plan.docx", FileTypeDocx},
		{"application/octet-stream", "Notes.DOCX", FileTypeDocx},
		{"application/octet-stream", "legacy.doc", FileTypeDoc},
		{"image/png", "scan.png", FileTypeImage},
		{"text/plain", "readme.txt", FileTypeOther},
		{"", "", FileTypeOther},
	}
	for _, tt := range tests {
		if got := DeriveFileType(tt.mime, tt.name); got != tt.want {
			t.Fatalf("DeriveFileType(%q, %q) = %s, want %s", tt.mime, tt.name, got, tt.want)
		}
	}
}
