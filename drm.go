package shelf

import (
	"bytes"
	"strings"

	"github.com/antchfx/xmlquery"
)

// encryptionFilePath is the standard path for the encryption descriptor.
const encryptionFilePath = "META-INF/encryption.xml"

// sinfFilePath is the path that indicates Apple FairPlay DRM.
const sinfFilePath = "META-INF/sinf.xml"

// Font obfuscation algorithm URIs. These do NOT constitute DRM.
var fontObfuscationAlgorithms = map[string]bool{
	"http://www.idpf.org/2008/embedding": true, // IDPF font obfuscation
	"http://ns.adobe.com/pdf/enc#RC":     true, // Adobe font obfuscation
}

// Warnings reported by protectionWarnings.
const (
	warnDRM             = "content appears to be DRM protected; chapters may be unreadable"
	warnFontObfuscation = "font obfuscation detected; embedded fonts are ignored"
)

// protectionWarnings inspects META-INF for DRM markers. Protection never
// stops ingestion; it is reported as a warning on the bundle.
func protectionWarnings(c *Container) []string {
	if _, err := c.ReadEntry(sinfFilePath); err == nil {
		return []string{warnDRM}
	}

	data, err := c.ReadEntry(encryptionFilePath)
	if err != nil {
		return nil
	}
	doc, err := xmlquery.Parse(bytes.NewReader(stripBOM(data)))
	if err != nil {
		// Unparsable encryption data is treated as protection.
		return []string{warnDRM}
	}

	obfuscated := false
	for _, ed := range xmlquery.Find(doc, "//*[local-name()='EncryptedData']") {
		method := xmlquery.FindOne(ed, "./*[local-name()='EncryptionMethod']")
		algo := ""
		if method != nil {
			algo = strings.TrimSpace(method.SelectAttr("Algorithm"))
		}
		if fontObfuscationAlgorithms[algo] {
			obfuscated = true
			continue
		}
		return []string{warnDRM}
	}
	if obfuscated {
		return []string{warnFontObfuscation}
	}
	return nil
}
