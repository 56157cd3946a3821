// Package upload stores file attachments such as expense receipts and
// supply invoices.
//
// Two backends implement Store: DiskStore keeps files in a local directory
// with a JSON sidecar per file, S3Store keeps them in an S3 compatible
// bucket. Handler accepts multipart uploads and DownloadHandler serves a
// stored file back.
//
//	store, _ := upload.NewDiskStore("data/attachments", 10<<20)
//	r.Post("/api/attachments", upload.Handler(store, upload.DefaultConfig()).ServeHTTP)
//	r.Get("/api/attachments/{id}", upload.DownloadHandler(store, func(r *http.Request) string {
//	    return chi.URLParam(r, "id")
//	}).ServeHTTP)
package upload
