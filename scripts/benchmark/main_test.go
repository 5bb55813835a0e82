package main

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestFileName(t *testing.T) {
	tests := map[string]string{
		"https://www.lemonde.fr":                "lemonde.fr.rod.txt",
		"https://opt-out.ferank.eu/fr/install/": "opt-out.ferank.eu_fr_install.rod.txt",
		"https://www.cookielaw.org/demo":        "cookielaw.org_demo.rod.txt",
	}
	for in, want := range tests {
		if got := fileName(in, "rod"); got != want {
			t.Errorf("fileName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLoadURLs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "urls.txt")
	content := "# news\nhttps://www.bbc.com\n\n  https://www.cnn.com  \n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := loadURLs(path)
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"https://www.bbc.com", "https://www.cnn.com"}; !reflect.DeepEqual(got, want) {
		t.Errorf("urls = %v, want %v", got, want)
	}

	if got, _ := loadURLs(""); len(got) != len(sampleURLs) {
		t.Errorf("default urls = %d, want %d", len(got), len(sampleURLs))
	}
}

func TestSummarize(t *testing.T) {
	results := []runResult{
		{URL: "u", Backend: "rod", Success: true, ServerSeconds: 1, ContentLength: 100},
		{URL: "u", Backend: "rod", Success: true, ServerSeconds: 3, ContentLength: 300},
		{URL: "u", Backend: "chromedp", ErrorCode: "SCRAPE_TIMEOUT"},
	}
	got := summarize([]string{"u"}, []string{"rod", "chromedp"}, results)
	if len(got) != 2 {
		t.Fatalf("rows = %d", len(got))
	}
	if got[0].Successes != 2 || got[0].AvgSeconds != 2 || got[0].AvgContentLen != 200 {
		t.Errorf("rod row = %+v", got[0])
	}
	if got[1].Successes != 0 || got[1].LastErrorCode != "SCRAPE_TIMEOUT" {
		t.Errorf("chromedp row = %+v", got[1])
	}
}

func TestSplitList(t *testing.T) {
	if got := splitList(" rod, ,chromedp "); !reflect.DeepEqual(got, []string{"rod", "chromedp"}) {
		t.Errorf("got %v", got)
	}
}
