package logging

import (
	"bufio"
	"os"
)

// Tail returns up to maxLines of the most recent lines in the log file at
// path, along with the total number of lines.
func Tail(path string, maxLines int) ([]string, int, error) {
	if maxLines <= 0 {
		return nil, 0, nil
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer file.Close()

	var lines []string
	total := 0
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		total++
		lines = append(lines, scanner.Text())
		if len(lines) > maxLines {
			lines = lines[1:]
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, err
	}
	return lines, total, nil
}
