// Package capture turns pages and uploaded files into plain text the backend can analyze.
//
// Pages are decoded to UTF-8 (chardet detection, x/net/html/charset conversion),
// parsed once with htmlquery for the title and walked with goquery for the
// visible text. Uploads are gated on their detected MIME type (mimetype) so
// binaries never reach the backend.
package capture
