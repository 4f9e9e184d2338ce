package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Vasiliy82/eaeu-circulation/internal/convert"
	"github.com/Vasiliy82/eaeu-circulation/internal/parser"
	"github.com/Vasiliy82/eaeu-circulation/internal/usecase"
	"github.com/Vasiliy82/eaeu-circulation/pkg/domain"
)

var (
	productsPath string
	codesPath    string
	inPath       string
	outPath      string
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Однократный запуск процесса по локальным файлам, результат в stdout",
	RunE:  runProcess,
}

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Перевод кодов РФ в формат РБ (цифра после \"21\": 5 -> 2)",
	RunE:  runConvert,
}

func init() {
	processCmd.Flags().StringVar(&productsPath, "products", "", "Файл описаний товаров (обязательно)")
	processCmd.Flags().StringVar(&codesPath, "codes", "", "Файл имеющихся кодов (обязательно)")
	_ = processCmd.MarkFlagRequired("products")
	_ = processCmd.MarkFlagRequired("codes")

	convertCmd.Flags().StringVar(&inPath, "in", "-", "Файл кодов, '-' для stdin")
	convertCmd.Flags().StringVar(&outPath, "out", "-", "Файл результата, '-' для stdout")
}

func runProcess(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	productText, err := readTextFile(productsPath)
	if err != nil {
		return err
	}
	codesText, err := readTextFile(codesPath)
	if err != nil {
		return err
	}
	records, err := parser.ParseRecords(productText)
	if err != nil {
		return err
	}

	var publisher usecase.ResultPublisher
	if p, err := newPublisher(ctx); err != nil {
		return err
	} else if p != nil {
		defer p.Close()
		publisher = p
	}
	uc, err := newUseCase(publisher)
	if err != nil {
		return err
	}

	res, runErr := uc.Run(ctx, usecase.Input{Records: records, Codes: parser.ParseCodes(codesText), Source: "cli"})
	if err := writeResult(cmd.OutOrStdout(), res); err != nil {
		return err
	}
	return runErr
}

func runConvert(cmd *cobra.Command, _ []string) error {
	var (
		text string
		err  error
	)
	if inPath == "-" {
		var data []byte
		if data, err = io.ReadAll(cmd.InOrStdin()); err == nil {
			text, err = parser.DecodeUTF8("stdin", data)
		}
	} else {
		text, err = readTextFile(inPath)
	}
	if err != nil {
		return err
	}

	codes := convert.All(domain.Strings(parser.ParseCodes(text)))
	out := convert.Lines(codes)

	if outPath == "-" {
		_, err = io.WriteString(cmd.OutOrStdout(), out)
		return err
	}
	if err := os.WriteFile(outPath, []byte(out), 0o644); err != nil {
		return fmt.Errorf("ошибка записи %s: %w", outPath, err)
	}
	logger.Info("Коды преобразованы", zap.Int("codes", len(codes)), zap.String("file", outPath))
	return nil
}

func readTextFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("ошибка чтения файла: %w", err)
	}
	return parser.DecodeUTF8(path, data)
}

func writeResult(w io.Writer, res *domain.WorkflowResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
