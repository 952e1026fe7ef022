/*
Package atomicfile writes a file under a temporary name (<path>.tmp)
and publishes it under its final name with a single rename.

Readers of <path> never see a partially written file: they see either
the previous version or the complete new one. If writing fails,
or the file is abandoned with RemoveIfNotClosed(), the temporary file
is deleted and <path> is not touched.

	func writeToFileAtomically(filePath string, data []byte) error {
		w, err := atomicfile.New(filePath)
		if err != nil {
			return err
		}
		// removes <path>.tmp on early return. A no-op after Close()
		defer w.RemoveIfNotClosed()

		_, err = w.Write(data)
		if err != nil {
			return err
		}
		return w.Close()
	}

New() creates <path>.tmp exclusively so only one writer at a time
can work on a given path.

Unlike plain os.Create() + Write(), File supports WriteAt() and Seek()
so that a header at the beginning can be rewritten after the rest
of the file was written.
*/
package atomicfile
