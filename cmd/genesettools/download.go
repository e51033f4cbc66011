package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// Annotation download sources
const (
	gencodeBaseURL = "https://ftp.ebi.ac.uk/pub/databases/gencode/Gencode_human/release_46"
	gencodeVersion = "v46"

	msigdbBaseURL = "https://data.broadinstitute.org/gsea-msigdb/msigdb/release"
	msigdbVersion = "2024.1.Hs"
)

// gencodeGTFURL returns the annotation GTF URL for the given assembly.
func gencodeGTFURL(assembly string) string {
	if strings.EqualFold(assembly, "GRCh37") {
		return fmt.Sprintf("%s/GRCh37_mapping/gencode.%slift37.annotation.gtf.gz", gencodeBaseURL, gencodeVersion)
	}
	return fmt.Sprintf("%s/gencode.%s.annotation.gtf.gz", gencodeBaseURL, gencodeVersion)
}

// msigdbGMTURL returns the symbol GMT URL for an MSigDB collection such
// as "c5.go.bp" or "h.all".
func msigdbGMTURL(collection string) string {
	return fmt.Sprintf("%s/%s/%s.%s.symbols.gmt", msigdbBaseURL, msigdbVersion, collection, msigdbVersion)
}

func newDownloadCmd() *cobra.Command {
	var (
		assembly    string
		collections []string
		outputDir   string
		skipGTF     bool
	)

	cmd := &cobra.Command{
		Use:   "download",
		Short: "Download GENCODE annotations and MSigDB gene sets",
		Long: `Download the GENCODE annotation GTF for a genome assembly and one or
more MSigDB gene set collections in GMT format. Files are stored in the
data directory and picked up by the enrich commands.`,
		Example: `  genesettools download
  genesettools download --assembly GRCh37
  genesettools download --collections h.all,c2.cp.reactome`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if outputDir == "" {
				dir, err := dataDir()
				if err != nil {
					return err
				}
				outputDir = dir
			}
			if err := os.MkdirAll(outputDir, 0755); err != nil {
				return fmt.Errorf("create directory %s: %w", outputDir, err)
			}

			fmt.Printf("Downloading to %s\n\n", outputDir)

			if !skipGTF {
				url := gencodeGTFURL(assembly)
				dest := filepath.Join(outputDir, filepath.Base(url))
				if err := downloadFile(url, dest); err != nil {
					return fmt.Errorf("download GENCODE GTF: %w", err)
				}
			}

			for _, c := range collections {
				url := msigdbGMTURL(c)
				dest := filepath.Join(outputDir, filepath.Base(url))
				if err := downloadFile(url, dest); err != nil {
					return fmt.Errorf("download MSigDB collection %s: %w", c, err)
				}
			}

			fmt.Printf("\nDownload complete!\n")
			return nil
		},
	}

	cmd.Flags().StringVar(&assembly, "assembly", "GRCh38", "Genome assembly: GRCh37 or GRCh38")
	cmd.Flags().StringSliceVar(&collections, "collections", []string{"c5.go.bp"}, "MSigDB collections to download")
	cmd.Flags().StringVar(&outputDir, "output", "", "Output directory (default: data directory)")
	cmd.Flags().BoolVar(&skipGTF, "skip-gtf", false, "Skip the GENCODE annotation download")
	return cmd
}

// downloadFile downloads a file from URL to the destination path with progress.
func downloadFile(url, destPath string) error {
	if info, err := os.Stat(destPath); err == nil {
		fmt.Printf("  %s already exists (%s), skipping\n", filepath.Base(destPath), formatSize(info.Size()))
		return nil
	}

	fmt.Printf("  Downloading %s...\n", filepath.Base(destPath))

	client := &http.Client{
		Timeout: 30 * time.Minute, // Long timeout for large files
	}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP error: %s", resp.Status)
	}

	tmpPath := destPath + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}

	var downloaded int64
	pw := &progressWriter{
		total:      resp.ContentLength,
		downloaded: &downloaded,
		lastPrint:  time.Now(),
	}

	_, err = io.Copy(f, io.TeeReader(resp.Body, pw))
	f.Close()

	if err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("download failed: %w", err)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename file: %w", err)
	}

	fmt.Printf("    Done: %s\n", formatSize(downloaded))
	return nil
}

// progressWriter tracks download progress.
type progressWriter struct {
	total      int64
	downloaded *int64
	lastPrint  time.Time
}

func (pw *progressWriter) Write(p []byte) (int, error) {
	n := len(p)
	*pw.downloaded += int64(n)

	// Print progress every second
	if time.Since(pw.lastPrint) > time.Second {
		if pw.total > 0 {
			pct := float64(*pw.downloaded) / float64(pw.total) * 100
			fmt.Printf("\r    Progress: %s / %s (%.1f%%)  ",
				formatSize(*pw.downloaded), formatSize(pw.total), pct)
		} else {
			fmt.Printf("\r    Progress: %s  ", formatSize(*pw.downloaded))
		}
		pw.lastPrint = time.Now()
	}

	return n, nil
}

// formatSize formats bytes as human-readable size.
func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
