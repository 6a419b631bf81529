package main

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"audio-fingerprint/models"
	"audio-fingerprint/wav"
)

func main() {
	dir := flag.String("dir", "samples", "Directory containing WAV files to send (ignored if -file is set)")
	file := flag.String("file", "", "Single WAV file to send (overrides -dir)")
	endpoint := flag.String("url", "http://localhost:5000/api/fingerprint", "Fingerprint endpoint")
	full := flag.Bool("full", false, "Request every (hash, offset) record")
	delay := flag.Duration("delay", 2*time.Second, "Delay between requests when using -dir")
	flag.Parse()

	files, err := resolveFiles(*file, *dir)
	if err != nil {
		log.Fatalf("failed to resolve files: %v", err)
	}
	if len(files) == 0 {
		log.Fatalf("no WAV files found (file=%s dir=%s)", *file, *dir)
	}

	target := *endpoint
	if *full {
		target += "?full=1"
	}

	fmt.Printf("Sending %d recording(s) to %s\n\n", len(files), target)
	for idx, path := range files {
		if err := sendRecording(path, target); err != nil {
			log.Printf("request failed for %s: %v\n", path, err)
		}

		if idx < len(files)-1 && *delay > 0 {
			time.Sleep(*delay)
		}
	}
}

func resolveFiles(single, dir string) ([]string, error) {
	if single != "" {
		return []string{single}, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".wav") {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	return files, nil
}

// encodePCM16 packs samples as little-endian 16-bit PCM.
func encodePCM16(samples []float32) []byte {
	quantized := wav.Quantize(samples, 16)
	buf := make([]byte, 2*len(quantized))
	for i, v := range quantized {
		binary.LittleEndian.PutUint16(buf[2*i:], uint16(int16(v)))
	}
	return buf
}

func sendRecording(path, endpoint string) error {
	fmt.Printf("→ %s\n", filepath.Base(path))

	wavInfo, err := wav.ReadWavInfo(path)
	if err != nil {
		return fmt.Errorf("parse wav: %w", err)
	}

	record := models.RecordData{
		Audio:      base64.StdEncoding.EncodeToString(encodePCM16(wavInfo.Samples)),
		Duration:   wavInfo.Duration,
		Channels:   1,
		SampleRate: wavInfo.SampleRate,
		SampleSize: 16,
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("post fingerprint request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		fmt.Println("   no fingerprints extracted")
		return nil
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(body))
	}

	var summary models.FingerprintSummary
	if err := json.Unmarshal(body, &summary); err != nil {
		return fmt.Errorf("decode fingerprint response: %w", err)
	}

	fmt.Printf("   frames=%d fingerprints=%d first=%s\n",
		summary.FrameCount, summary.FingerprintCount, summary.SampleHash)
	if len(summary.Fingerprints) > 0 {
		fmt.Printf("   received %d records\n", len(summary.Fingerprints))
	}

	return nil
}
