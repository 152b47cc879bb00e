package answer

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/SKEIILATT/ProyectoLP-2P/internal/application/retrieval"
	"github.com/SKEIILATT/ProyectoLP-2P/internal/config"
	"github.com/SKEIILATT/ProyectoLP-2P/pkg/logger"
)

// Intent 确定性 CSV 应答的查询意图
type Intent int

// 意图取值，按特异性从高到低参与路由
const (
	IntentNone Intent = iota
	IntentGender
	IntentInstitution
	IntentRate
	IntentCount
	IntentOverview
)

// CSVAnswerer 确定性 CSV 应答子程序：把已知问题类别直接映射到
// 预聚合统计文件上的计算，完全绕开生成模型。已知的数值事实
// 绝不能交给模型改写。
type CSVAnswerer struct {
	cfg config.DeterministicConfig
}

// NewCSVAnswerer 创建确定性应答器
func NewCSVAnswerer(cfg config.DeterministicConfig) *CSVAnswerer {
	return &CSVAnswerer{cfg: cfg}
}

// Route 按触发词组对查询分类。所有意图都要求命中辍学词组，
// 细分意图（性别、机构）优先于汇总意图。
func (a *CSVAnswerer) Route(query string) Intent {
	if !retrieval.ContainsAny(query, a.cfg.TriggerDropout) {
		return IntentNone
	}
	switch {
	case retrieval.ContainsAny(query, a.cfg.TriggerGender):
		return IntentGender
	case retrieval.ContainsAny(query, a.cfg.TriggerInstitution):
		return IntentInstitution
	case retrieval.ContainsAny(query, a.cfg.TriggerRate):
		return IntentRate
	case retrieval.ContainsAny(query, a.cfg.TriggerCount):
		return IntentCount
	case retrieval.ContainsAny(query, a.cfg.TriggerOverview):
		return IntentOverview
	default:
		return IntentNone
	}
}

// Answer 对给定意图计算确定性回答。
// ok=false 表示没有可用的确定性回答（文件缺失、行不匹配），
// 调用方应继续走其他策略；ok=true 且串为空表示路径跑通但没产出。
func (a *CSVAnswerer) Answer(ctx context.Context, intent Intent) (string, bool) {
	var (
		text string
		ok   bool
	)
	switch intent {
	case IntentRate:
		text, ok = a.rateAnswer(ctx)
	case IntentCount:
		text, ok = a.countAnswer(ctx)
	case IntentGender:
		text, ok = a.breakdownAnswer(ctx, a.cfg.GenderFile, "Deserción por sexo (2022):")
	case IntentInstitution:
		text, ok = a.breakdownAnswer(ctx, a.cfg.InstitutionFile, "Deserción por tipo de institución (2022):")
	case IntentOverview:
		text, ok = a.overviewAnswer(ctx)
	default:
		return "", false
	}
	return text, ok
}

// Sources 确定性回答对外暴露的固定来源列表
func (a *CSVAnswerer) Sources() []string {
	return []string{a.cfg.SummaryFile, a.cfg.GenderFile, a.cfg.InstitutionFile}
}

// rateAnswer 辍学率意图：从指标表取率并附上规模数字
func (a *CSVAnswerer) rateAnswer(ctx context.Context) (string, bool) {
	rows, err := a.readTable(ctx, a.cfg.SummaryFile)
	if err != nil {
		return "", false
	}
	rate, found := findIndicator(rows, "tasa de desercion")
	if !found {
		return "", false
	}

	var sb strings.Builder
	sb.WriteString("Según los datos oficiales de deserción universitaria en Ecuador (2022):\n\n")
	sb.WriteString(fmt.Sprintf("- Tasa de Deserción: %s%%\n", strings.TrimSuffix(rate, "%")))
	if v, ok := findIndicator(rows, "matriculados"); ok {
		sb.WriteString(fmt.Sprintf("- Estudiantes matriculados: %s\n", formatCount(v)))
	}
	if v, ok := findIndicator(rows, "abandonaron"); ok {
		sb.WriteString(fmt.Sprintf("- Estudiantes que abandonaron: %s\n", formatCount(v)))
	}
	if v, ok := findIndicator(rows, "retencion"); ok {
		sb.WriteString(fmt.Sprintf("- Tasa de Retención: %s%%\n", v))
	}
	return strings.TrimRight(sb.String(), "\n"), true
}

// countAnswer 辍学人数意图：人数 + 占比句
func (a *CSVAnswerer) countAnswer(ctx context.Context) (string, bool) {
	rows, err := a.readTable(ctx, a.cfg.SummaryFile)
	if err != nil {
		return "", false
	}
	dropped, found := findIndicator(rows, "abandonaron")
	if !found {
		return "", false
	}

	text := fmt.Sprintf("En 2022, %s estudiantes abandonaron sus estudios universitarios en Ecuador", formatCount(dropped))
	if enrolled, ok := findIndicator(rows, "matriculados"); ok {
		text += fmt.Sprintf(", de un total de %s matriculados", formatCount(enrolled))
		if rate, ok := findIndicator(rows, "tasa de desercion"); ok {
			text += fmt.Sprintf(" (%s%% de deserción)", rate)
		}
	}
	return text + ".", true
}

// breakdownAnswer 分类细分意图：每个类别一行，含绝对数与率
func (a *CSVAnswerer) breakdownAnswer(ctx context.Context, file, title string) (string, bool) {
	rows, err := a.readTable(ctx, file)
	if err != nil || len(rows) == 0 {
		return "", false
	}

	var sb strings.Builder
	sb.WriteString(title)
	for _, row := range rows {
		if len(row) < 4 {
			continue
		}
		sb.WriteString(fmt.Sprintf("\n- %s: %s abandonaron de %s matriculados (%s%% de deserción)",
			row[0], formatCount(row[1]), formatCount(row[2]), strings.TrimSuffix(row[3], "%")))
	}
	out := sb.String()
	if out == title {
		return "", false
	}
	return out, true
}

// overviewAnswer 汇总意图：逐行输出全部指标，
// 率类指标带 % 后缀，人数类指标带千位分隔
func (a *CSVAnswerer) overviewAnswer(ctx context.Context) (string, bool) {
	rows, err := a.readTable(ctx, a.cfg.SummaryFile)
	if err != nil || len(rows) == 0 {
		return "", false
	}

	var sb strings.Builder
	sb.WriteString("Resumen general de deserción universitaria en Ecuador (2022):")
	for _, row := range rows {
		if len(row) < 2 {
			continue
		}
		if strings.Contains(retrieval.Normalize(row[0]), "tasa") {
			sb.WriteString(fmt.Sprintf("\n- %s: %s%%", row[0], strings.TrimSuffix(row[1], "%")))
		} else {
			sb.WriteString(fmt.Sprintf("\n- %s: %s", row[0], formatCount(row[1])))
		}
	}
	return sb.String(), true
}

// readTable 读取数据目录下的 CSV，跳过表头行。
// 文件缺失或解析失败只记日志，不往上抛。
func (a *CSVAnswerer) readTable(ctx context.Context, file string) ([][]string, error) {
	path := filepath.Join(a.cfg.DataDir, file)
	f, err := os.Open(path)
	if err != nil {
		logger.FromContext(ctx).Debug("deterministic table unavailable", "path", path, "error", err)
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		logger.FromContext(ctx).Warn("deterministic table unparseable", "path", path, "error", err)
		return nil, err
	}
	if len(records) <= 1 {
		return nil, nil
	}
	return records[1:], nil
}

// findIndicator 按指标名做大小写不敏感（含变音折叠）的子串匹配
func findIndicator(rows [][]string, name string) (string, bool) {
	needle := retrieval.Normalize(name)
	for _, row := range rows {
		if len(row) < 2 {
			continue
		}
		if strings.Contains(retrieval.Normalize(row[0]), needle) {
			return strings.TrimSpace(row[1]), true
		}
	}
	return "", false
}

// formatCount 整数值加千位分隔符；非整数值原样返回
func formatCount(v string) string {
	v = strings.TrimSpace(v)
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return v
	}
	s := strconv.FormatInt(n, 10)
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}
	var parts []string
	for len(s) > 3 {
		parts = append([]string{s[len(s)-3:]}, parts...)
		s = s[:len(s)-3]
	}
	parts = append([]string{s}, parts...)
	out := strings.Join(parts, ",")
	if neg {
		out = "-" + out
	}
	return out
}
