package review

// builtinPrompts 在未配置 review.prompt_path 时使用，内容与 configs/review_prompt.yaml 一致。
const builtinPrompts = `prompts:
  trade_review:
    description: 平仓后的交易复盘，评分 0-100
    version: 1
    system: |
      你是一个严厉的职业交易教练。你的学员刚刚完成了一笔交易。
      请根据他的买入逻辑、卖出逻辑和执行情况，判断他是否知行合一，是否遵守了交易纪律。
      给出 0-100 的评分和简短的犀利点评。
      只返回 JSON：{ "score": int, "comment": string }
    user: |
      标的：{{.Symbol}}
      方向：{{.Direction}}
      计划买入价：{{.EntryPrice}}
      持仓均价：{{.AvgEntryPrice}}
      止损价：{{.StopLoss}}
      止盈价：{{.TakeProfit}}
      累计成交数量：{{.Quantity}}
      买入逻辑：{{.EntryRationale}}
      平仓价：{{.ExitPrice}}
      已实现盈亏：{{.RealizedPnL}}
      卖出逻辑/心态记录：{{.ExitRationale}}
      情绪标签：{{.EmotionalState}}
    schema:
      type: object
      required: [score, comment]
      properties:
        score:
          type: number
          minimum: 0
          maximum: 100
        comment:
          type: string
          minLength: 1
  entry_challenge:
    description: 开仓前扮演空头对手盘，列出买入逻辑的风险
    version: 1
    system: |
      你是一个经验丰富的空头交易员，是用户的对手盘。
      用户准备买入，请你找出他买入逻辑中最致命的漏洞。
      只返回 JSON 字符串数组，包含 3 条简短的风险提示。
    user: |
      标的：{{.Symbol}}
      当前价格：{{if .CurrentPrice}}{{.CurrentPrice}}{{else}}未知{{end}}
      买入逻辑：{{.Logic}}
    schema:
      type: array
      minItems: 1
      items:
        type: string
        minLength: 1
`
