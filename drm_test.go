package shelf

import (
	"reflect"
	"testing"
)

func encryptionXML(algorithms ...string) string {
	s := `<?xml version="1.0" encoding="UTF-8"?>
<encryption xmlns="urn:oasis:names:tc:opendocument:xmlns:container"
            xmlns:enc="http://www.w3.org/2001/04/xmlenc#">`
	for _, a := range algorithms {
		s += `
  <enc:EncryptedData>
    <enc:EncryptionMethod Algorithm="` + a + `"/>
    <enc:CipherData><enc:CipherReference URI="OEBPS/x"/></enc:CipherData>
  </enc:EncryptedData>`
	}
	return s + "\n</encryption>"
}

func TestProtectionWarnings(t *testing.T) {
	tests := []struct {
		name  string
		files []zipEntry
		want  []string
	}{
		{
			name:  "no encryption descriptor",
			files: []zipEntry{{"OEBPS/content.opf", "<package/>"}},
			want:  nil,
		},
		{
			name:  "IDPF font obfuscation only",
			files: []zipEntry{{"META-INF/encryption.xml", encryptionXML("http://www.idpf.org/2008/embedding")}},
			want:  []string{warnFontObfuscation},
		},
		{
			name:  "Adobe font obfuscation only",
			files: []zipEntry{{"META-INF/encryption.xml", encryptionXML("http://ns.adobe.com/pdf/enc#RC")}},
			want:  []string{warnFontObfuscation},
		},
		{
			name:  "AES encrypted content",
			files: []zipEntry{{"META-INF/encryption.xml", encryptionXML("http://www.w3.org/2001/04/xmlenc#aes128-cbc")}},
			want:  []string{warnDRM},
		},
		{
			name: "font obfuscation mixed with content encryption",
			files: []zipEntry{{"META-INF/encryption.xml", encryptionXML(
				"http://www.idpf.org/2008/embedding",
				"http://www.w3.org/2001/04/xmlenc#aes256-cbc",
			)}},
			want: []string{warnDRM},
		},
		{
			name:  "missing algorithm",
			files: []zipEntry{{"META-INF/encryption.xml", encryptionXML("")}},
			want:  []string{warnDRM},
		},
		{
			name:  "empty encryption descriptor",
			files: []zipEntry{{"META-INF/encryption.xml", encryptionXML()}},
			want:  nil,
		},
		{
			name:  "Apple FairPlay",
			files: []zipEntry{{"META-INF/sinf.xml", "<sinf/>"}},
			want:  []string{warnDRM},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := openTestContainer(t, tt.files)
			got := protectionWarnings(c)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("protectionWarnings() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParse_ReportsDRM(t *testing.T) {
	fp := buildTestEPubFile(t, "locked.epub", []zipEntry{
		{"META-INF/encryption.xml", encryptionXML("http://www.w3.org/2001/04/xmlenc#aes128-cbc")},
		{"OEBPS/ch1.xhtml", "binary-looking ciphertext"},
	})

	b, err := newTestEngine(t).Parse(fp)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(b.Warnings) != 1 || b.Warnings[0] != warnDRM {
		t.Errorf("Warnings = %v, want [%q]", b.Warnings, warnDRM)
	}
	if b.TotalChapters != 1 {
		t.Errorf("TotalChapters = %d, want 1", b.TotalChapters)
	}
}
