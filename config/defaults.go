package config

// DefaultCatalog is the built-in agent set: three flat agents, the
// toolkit workers, four coordinators and the supervisor above them.
func DefaultCatalog() *Catalog {
	return &Catalog{
		Default: "supervisor",
		Agents: []AgentSpec{
			{
				Name:         "simple",
				Description:  "Plain chat without tools",
				Kind:         KindChat,
				Provider:     "cerebras",
				Instructions: "You are a helpful assistant. Answer concisely.",
			},
			{
				Name:         "openrouter",
				Description:  "Arithmetic and current time through tools",
				Kind:         KindToolLoop,
				Provider:     "openrouter",
				Toolkits:     []string{"calculator"},
				Instructions: "You are a helpful assistant with access to a calculator and a clock. Use the tools for arithmetic and for questions about the current time.",
			},
			{
				Name:         "tavily",
				Description:  "Web search and content extraction",
				Kind:         KindToolLoop,
				Provider:     "cerebras",
				Toolkits:     []string{"tavily"},
				Instructions: "You are a research assistant. Use tavily_search to find current information and tavily_extract to read pages. Cite the sources you used.",
			},
			{
				Name:         "github",
				Description:  "GitHub operations: issues, PRs, repos",
				Kind:         KindToolLoop,
				Provider:     "anthropic",
				Toolkits:     []string{"github"},
				Instructions: "You manage GitHub on behalf of user {{.user_id}}. Use the github tools to read repositories, list and create issues and star repositories. Repositories are written owner/name.",
			},
			{
				Name:         "meta",
				Description:  "Dynamic tool discovery and execution",
				Kind:         KindToolLoop,
				Provider:     "anthropic",
				Toolkits:     []string{"composio"},
				Instructions: "You discover and run Composio actions. Search for a matching action with composio_search_tools, then run it with composio_execute.",
			},
			{
				Name:         "wallet",
				Description:  "Wallet balances, transaction counts and chain status",
				Kind:         KindToolLoop,
				Provider:     "cerebras",
				Toolkits:     []string{"evm"},
				Instructions: "You answer questions about on-chain wallets. Addresses are 0x-prefixed hex strings. Never invent balances.",
			},
			{
				Name:         "gemini",
				Description:  "Chat with Gemini",
				Kind:         KindChat,
				Provider:     "gemini",
				Instructions: "You are a helpful assistant.",
			},
			{
				Name:         "claude",
				Description:  "Chat with Claude",
				Kind:         KindChat,
				Provider:     "anthropic",
				Instructions: "You are a helpful assistant.",
			},
			{
				Name:        "composio_coordinator",
				Description: "Handles GitHub, Gmail, and 800+ app integrations",
				Kind:        KindRouter,
				Provider:    "anthropic",
				Role:        "You are a Composio coordinator managing specialized worker agents.",
				Candidates: []CandidateSpec{
					{Name: "github_worker", Agent: "github", Description: "GitHub operations: issues, PRs, repos", Keywords: []string{"github"}},
					{Name: "meta_worker", Agent: "meta", Description: "Dynamic tool discovery and execution", Keywords: []string{"meta"}},
				},
				Examples: []ExampleSpec{
					{Query: "Create GitHub issue", Decision: "github_worker"},
					{Query: "Search for Slack tools", Decision: "meta_worker"},
					{Query: "Star a repository", Decision: "github_worker"},
					{Query: "Find tools for Gmail", Decision: "meta_worker"},
				},
			},
			{
				Name:        "search_coordinator",
				Description: "Handles web search and content extraction",
				Kind:        KindRouter,
				Provider:    "cerebras",
				Role:        "You are a search coordinator managing research workers.",
				Candidates: []CandidateSpec{
					{Name: "tavily_worker", Agent: "tavily", Description: "Web search and page extraction", Keywords: []string{"tavily", "search", "extract", "news"}},
				},
			},
			{
				Name:        "web3_coordinator",
				Description: "Handles blockchain, DeFi, NFT operations",
				Kind:        KindRouter,
				Provider:    "cerebras",
				Role:        "You are a Web3 coordinator managing blockchain workers.",
				Candidates: []CandidateSpec{
					{Name: "wallet_worker", Agent: "wallet", Description: "NFT queries and wallet operations", Keywords: []string{"wallet", "nft", "balance"}},
				},
				Examples: []ExampleSpec{
					{Query: "Get my NFTs", Decision: "wallet_worker"},
					{Query: "What is the balance of 0xabc...", Decision: "wallet_worker"},
				},
			},
			{
				Name:        "llm_coordinator",
				Description: "Handles multi-model AI tasks",
				Kind:        KindRouter,
				Provider:    "cerebras",
				Role:        "You are an LLM coordinator choosing which model answers a question.",
				Candidates: []CandidateSpec{
					{Name: "claude_worker", Agent: "claude", Description: "Anthropic Claude", Keywords: []string{"claude", "anthropic"}},
					{Name: "gemini_worker", Agent: "gemini", Description: "Google Gemini", Keywords: []string{"gemini", "google"}},
					{Name: "llama_worker", Agent: "simple", Description: "Llama on Cerebras", Keywords: []string{"llama", "cerebras"}},
				},
			},
			{
				Name:        "supervisor",
				Description: "Routes requests to the coordinator of the matching domain",
				Kind:        KindRouter,
				Provider:    "cerebras",
				Role:        "You are a supervisor routing user requests to specialized coordinators.",
				Candidates: []CandidateSpec{
					{Name: "composio_coordinator", Agent: "composio_coordinator", Description: "Handles GitHub, Gmail, and 800+ app integrations", Keywords: []string{"composio"}},
					{Name: "search_coordinator", Agent: "search_coordinator", Description: "Handles web search and content extraction", Keywords: []string{"search"}},
					{Name: "web3_coordinator", Agent: "web3_coordinator", Description: "Handles blockchain, DeFi, NFT operations", Keywords: []string{"web3", "blockchain"}},
					{Name: "llm_coordinator", Agent: "llm_coordinator", Description: "Handles multi-model AI tasks", Keywords: []string{"llm", "model"}},
				},
				Examples: []ExampleSpec{
					{Query: "Create a GitHub issue", Decision: "composio_coordinator"},
					{Query: "Search for AI news", Decision: "search_coordinator"},
					{Query: "Get my NFTs", Decision: "web3_coordinator"},
					{Query: "Compare GPT-4 and Claude", Decision: "llm_coordinator"},
				},
				Announce: "Routing your request to {{.worker}}...",
			},
		},
		Users: []UserSpec{
			{ID: "user_001", Name: "Alice", Email: "alice@example.com"},
			{ID: "user_002", Name: "Bob", Email: "bob@example.com"},
			{ID: "user_003", Name: "Charlie", Email: "charlie@example.com"},
		},
	}
}
