package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"bgmexport/internal/catalog"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

var (
	headLeading  = []string{"名称", "名称(中文)", "条目类型", "地址", "状态", "最后标注"}
	headDetail   = []string{"完成度", "完成度(百分比)", "完成单集"}
	headTrailing = []string{"我的评分", "我的标签", "我的评论"}
)

// CSVHeader returns the header row; detail adds the progress columns.
func CSVHeader(detail bool) []string {
	header := append([]string{}, headLeading...)
	if detail {
		header = append(header, headDetail...)
	}
	return append(header, headTrailing...)
}

func csvRow(r catalog.Record, detail bool) []string {
	row := []string{r.SourceName(), r.LocalizedName, r.TypeLabel, r.URL, r.StatusLabel, r.Updated}
	if detail {
		row = append(row, r.Detail.Progress(), r.Detail.PercentLabel(), r.Detail.Notation())
	}
	rating := ""
	if r.Rated() {
		rating = strconv.Itoa(r.Rating)
	}
	return append(row, rating, joinTags(r.Tags), r.Comment)
}

// WriteCSV writes a BOM-prefixed CSV document. Absent values are empty cells.
func WriteCSV(w io.Writer, records []catalog.Record, detail bool) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader(detail)); err != nil {
		return err
	}
	for _, r := range records {
		if err := cw.Write(csvRow(r, detail)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
